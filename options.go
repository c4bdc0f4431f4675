package metasync

import (
	"github.com/rs/zerolog"

	"github.com/ausgeophys/metasync/pkg/manifest"
	"github.com/ausgeophys/metasync/pkg/reconcile"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// Option is a function that configures a Client.
type Option func(*config) error

// config holds the injected collaborators.
type config struct {
	catalogue        sources.CatalogueClient
	registry         sources.RegistryClient
	registryFallback sources.RegistryClient
	minter           reconcile.Minter
	templateFields   []sources.TemplateField
	storeOpener      StoreOpener
	manifestOpts     []manifest.Option
	logger           *zerolog.Logger
}

func newConfig() *config {
	return &config{}
}

// WithCatalogue configures the catalogue record client.
func WithCatalogue(client sources.CatalogueClient) Option {
	return func(c *config) error {
		c.catalogue = client
		return nil
	}
}

// WithRegistry configures the survey registry client.
func WithRegistry(client sources.RegistryClient) Option {
	return func(c *config) error {
		c.registry = client
		return nil
	}
}

// WithRegistryFallback configures a secondary registry consulted when the
// primary yields nothing. The fallback merges authoritatively: it is the
// system of record the primary mirrors.
func WithRegistryFallback(client sources.RegistryClient) Option {
	return func(c *config) error {
		c.registryFallback = client
		return nil
	}
}

// WithMinter configures the persistent-identifier minting client.
func WithMinter(m reconcile.Minter) Option {
	return func(c *config) error {
		c.minter = m
		return nil
	}
}

// WithTemplateFields configures the output field definitions resolved
// against the merged tree.
func WithTemplateFields(fields []sources.TemplateField) Option {
	return func(c *config) error {
		c.templateFields = fields
		return nil
	}
}

// WithStoreOpener replaces how dataset attribute stores are opened. Tests
// use this to run against in-memory stores.
func WithStoreOpener(open StoreOpener) Option {
	return func(c *config) error {
		c.storeOpener = open
		return nil
	}
}

// WithManifestOptions sets the capture options used for manifest
// finalization and verification.
func WithManifestOptions(opts ...manifest.Option) Option {
	return func(c *config) error {
		c.manifestOpts = opts
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = &logger
		return nil
	}
}
