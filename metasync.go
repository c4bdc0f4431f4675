// Package metasync keeps geophysical dataset metadata synchronized across
// the dataset's own attribute store, the survey registry, the published
// catalogue record and the manifest sidecar, and renders the reconciled
// record as an output document.
package metasync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ausgeophys/metasync/internal/attrstore"
	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/logging"
	"github.com/ausgeophys/metasync/pkg/manifest"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/reconcile"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// AttributesName is the attribute store file inside a dataset directory.
const AttributesName = "attributes.yaml"

// StoreOpener opens the attribute store for a dataset directory.
type StoreOpener func(datasetDir string) (sources.AttributeStore, error)

// Client orchestrates metadata runs for datasets. Collaborators are
// injected through options; a Client with no collaborators still supports
// manifest capture and verification.
type Client struct {
	config *config
	logger zerolog.Logger

	manifestStore *manifest.Store
}

// New creates a client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		config:        newConfig(),
		logger:        *logging.Default(),
		manifestStore: manifest.NewStore(),
	}
	if err := c.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	if c.config.logger != nil {
		c.logger = *c.config.logger
	}
	return c, nil
}

func (c *Client) options(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the dataset's attribute store, honoring an injected
// opener.
func (c *Client) openStore(datasetDir string) (sources.AttributeStore, error) {
	if c.config.storeOpener != nil {
		return c.config.storeOpener(datasetDir)
	}
	return attrstore.Open(filepath.Join(datasetDir, AttributesName))
}

// UpdateResult is the outcome of a full metadata update run.
type UpdateResult struct {
	*reconcile.Result

	// Snapshot is the re-finalized manifest written alongside the dataset.
	Snapshot *manifest.Snapshot
}

// UpdateRecord runs a full metadata update for the dataset directory:
// reconcile all sources, resolve identity, acquire a persistent identifier,
// derive the computed fields, persist staged attribute writes, then
// re-finalize the manifest sidecar under the resolved identifier.
func (c *Client) UpdateRecord(ctx context.Context, datasetDir string) (*UpdateResult, error) {
	store, eng, err := c.reconcileDataset(ctx, datasetDir, c.config.minter)
	if err != nil {
		return nil, err
	}

	if eng.StoreDirty() {
		if err := store.Persist(); err != nil {
			return nil, fmt.Errorf("persisting attribute store: %w", err)
		}
	}

	res := eng.Result()
	snap, err := manifest.Capture(ctx, datasetDir, res.Identifier, c.config.manifestOpts...)
	if err != nil {
		return nil, fmt.Errorf("capturing manifest: %w", err)
	}
	if err := c.manifestStore.Save(snap); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}

	c.logger.Info().
		Str("dataset", datasetDir).
		Str("identifier", res.Identifier).
		Int("warnings", len(res.Warnings)).
		Msg("metadata record updated")
	return &UpdateResult{Result: res, Snapshot: snap}, nil
}

// RenderRecord reconciles the dataset and renders the result through a
// handlebars template. Nothing is persisted: the attribute store, the
// sidecar and the minting service are left untouched, so the output is a
// preview of what UpdateRecord would produce.
func (c *Client) RenderRecord(ctx context.Context, datasetDir, templateSource string, opts ...RenderOption) (string, error) {
	_, eng, err := c.reconcileDataset(ctx, datasetDir, nil)
	if err != nil {
		return "", err
	}
	return renderTree(eng.Root(), templateSource, eng.Sink(), opts...)
}

// VerifyFiles checks the dataset's files against its manifest sidecar. A
// clean dataset returns a passing report; any drift returns the report
// wrapped in a DriftError.
func (c *Client) VerifyFiles(ctx context.Context, datasetDir string) (*manifest.DriftReport, error) {
	store, err := c.openStore(datasetDir)
	if err != nil {
		return nil, err
	}

	identifier := storedIdentifier(store)
	if identifier == "" {
		// No local identity claim; verify against the sidecar's own.
		snap, err := c.manifestStore.Load(datasetDir)
		if err != nil {
			return nil, err
		}
		identifier = snap.Identifier
	}
	return manifest.Verify(ctx, datasetDir, identifier, c.config.manifestOpts...)
}

// CaptureManifest finalizes the dataset's manifest sidecar. The dataset's
// identity is resolved the same way an update run resolves it, and a fresh
// identifier is written back to the attribute store.
func (c *Client) CaptureManifest(ctx context.Context, datasetDir string) (*manifest.Snapshot, error) {
	store, err := c.openStore(datasetDir)
	if err != nil {
		return nil, err
	}

	sink := diag.NewSink(diag.WithLogger(&c.logger))
	eng := reconcile.New(reconcile.WithSink(sink))
	if err := eng.Merge(ctx, sources.NewSidecarSource(c.manifestStore, datasetDir), false); err != nil {
		return nil, err
	}

	identifier := eng.ResolveIdentifier(store)
	if eng.StoreDirty() {
		if err := store.Persist(); err != nil {
			return nil, fmt.Errorf("persisting attribute store: %w", err)
		}
	}

	snap, err := manifest.Capture(ctx, datasetDir, identifier, c.config.manifestOpts...)
	if err != nil {
		return nil, err
	}
	if err := c.manifestStore.Save(snap); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("dataset", datasetDir).
		Str("identifier", identifier).
		Int("files", len(snap.Files)).
		Msg("manifest captured")
	return snap, nil
}

// storedIdentifier reads a usable identifier from the attribute store.
func storedIdentifier(store sources.AttributeStore) string {
	v, ok := store.Get("uuid")
	if !ok {
		return ""
	}
	id, _ := metatree.String(v)
	return id
}
