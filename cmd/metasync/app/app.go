// Package app provides the application context and dependency wiring for
// the metasync CLI: configuration, logging, and the lazily constructed
// metasync client.
package app

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ausgeophys/metasync"
	"github.com/ausgeophys/metasync/internal/clients/catalogue"
	"github.com/ausgeophys/metasync/internal/clients/minter"
	"github.com/ausgeophys/metasync/internal/clients/registry"
	"github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/reconcile"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// App represents the metasync application with its dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger

	mu     sync.Mutex
	client *metasync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	a.config = config

	logger := NewLogger(config)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Client returns the metasync client, creating it lazily from the
// configuration. Collaborators without configured endpoints are simply not
// wired; the client degrades those concerns to warnings.
func (a *App) Client() (*metasync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	client, err := metasync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = client
	return client, nil
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() ([]metasync.Option, error) {
	opts := []metasync.Option{
		metasync.WithLogger(*a.logger),
	}

	if a.config.CatalogueURL != "" {
		opts = append(opts, metasync.WithCatalogue(catalogue.New(a.config.CatalogueURL)))
	}
	if a.config.RegistryURL != "" {
		opts = append(opts, metasync.WithRegistry(registry.New(a.config.RegistryURL)))
	}
	if a.config.RegistryFallbackURL != "" {
		opts = append(opts, metasync.WithRegistryFallback(registry.New(a.config.RegistryFallbackURL)))
	}
	if a.config.MinterURL != "" {
		mode := reconcile.ModeTest
		if a.config.MinterMode == string(reconcile.ModeProd) {
			mode = reconcile.ModeProd
		}
		opts = append(opts, metasync.WithMinter(minter.New(a.config.MinterURL, mode)))
	}

	if a.config.TemplateFieldsFile != "" {
		data, err := os.ReadFile(a.config.TemplateFieldsFile)
		if err != nil {
			return nil, errors.WrapIO("read", a.config.TemplateFieldsFile, err)
		}
		fields, err := sources.ParseTemplateFields(data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metasync.WithTemplateFields(fields))
	}
	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(client *metasync.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
