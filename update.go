package metasync

import (
	"context"
	"fmt"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/reconcile"
	"github.com/ausgeophys/metasync/pkg/render"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// reconcileDataset runs the reconciliation pipeline for one dataset and
// returns the open store and the engine holding the merged tree. Nothing is
// persisted here; callers decide whether staged store writes are flushed.
//
// Merge priority: the dataset's own attributes first, then the sidecar
// cache, the survey registry, the catalogue record, and the resolved
// template. Derived fields are merged last with overwrite, since they are
// computed from the already-reconciled values.
func (c *Client) reconcileDataset(ctx context.Context, datasetDir string, minter reconcile.Minter) (sources.AttributeStore, *reconcile.Engine, error) {
	store, err := c.openStore(datasetDir)
	if err != nil {
		return nil, nil, err
	}

	sink := diag.NewSink(diag.WithLogger(&c.logger))
	eng := reconcile.New(reconcile.WithSink(sink))

	if err := eng.Merge(ctx, sources.NewAttributeSource(store), false); err != nil {
		return nil, nil, err
	}
	if err := eng.Merge(ctx, sources.NewSidecarSource(c.manifestStore, datasetDir), false); err != nil {
		return nil, nil, err
	}

	identifier := eng.ResolveIdentifier(store)

	c.mergeRegistry(ctx, eng, store, datasetDir)

	if c.config.catalogue != nil {
		src := sources.NewCatalogueSource(c.config.catalogue, identifier)
		if err := eng.Merge(ctx, src, false); err != nil {
			// The catalogue record is advisory; a missing or unreachable
			// record degrades to warnings, not failure.
			sink.CollaboratorFailed("catalogue", err)
		}
	}

	eng.ReconcileSurveyIDs(store)
	eng.Derive(datasetDir)

	if len(c.config.templateFields) > 0 {
		src := sources.NewTemplateSource(c.config.templateFields, eng.Root)
		if err := eng.Merge(ctx, src, false); err != nil {
			return nil, nil, err
		}
	}

	if minter != nil {
		eng.AcquireDOI(ctx, minter, store)
	}
	return store, eng, nil
}

// mergeRegistry merges the survey registry fragment. Survey IDs come from
// the attribute store when present, otherwise from digit runs in the
// dataset name. When the primary registry yields nothing and a fallback is
// configured, the fallback's fragment is merged authoritatively: it is the
// system of record the primary mirrors.
func (c *Client) mergeRegistry(ctx context.Context, eng *reconcile.Engine, store sources.AttributeStore, datasetDir string) {
	if c.config.registry == nil && c.config.registryFallback == nil {
		return
	}

	ids := surveyIDs(store, datasetDir)
	if len(ids) == 0 {
		eng.Sink().Absent("survey_id", "no survey ids in store or dataset name, skipping registry")
		return
	}

	if c.config.registry != nil {
		err := eng.Merge(ctx, sources.NewRegistrySource(c.config.registry, ids), false)
		if err == nil {
			c.checkDatasetName(eng, datasetDir)
			return
		}
		eng.Sink().CollaboratorFailed("registry", err)
	}

	if c.config.registryFallback != nil {
		src := sources.NewRegistrySource(c.config.registryFallback, ids)
		if err := eng.Merge(ctx, src, true); err != nil {
			eng.Sink().CollaboratorFailed("registry-fallback", err)
			return
		}
		c.checkDatasetName(eng, datasetDir)
	}
}

// checkDatasetName warns when the state or datatype encoded in a
// conventional grid name disagrees with the registry's survey values.
func (c *Client) checkDatasetName(eng *reconcile.Engine, datasetDir string) {
	hints := sources.HintsFromFilename(datasetDir)
	sources.CheckFilenameHints(hints, eng.Root().Subtree(sources.CategorySurvey), eng.Sink())
}

// surveyIDs resolves the dataset's survey identifiers.
func surveyIDs(store sources.AttributeStore, datasetDir string) []int {
	if v, ok := store.Get("survey_id"); ok {
		if ids, ok := metatree.IntList(v); ok {
			return ids
		}
	}
	return sources.SurveyIDsFromFilename(datasetDir)
}

// RenderOption configures record rendering.
type RenderOption func(*renderConfig)

type renderConfig struct {
	categories []string
	prettyXML  bool
}

// WithRenderCategories restricts projection to the named categories, in
// priority order.
func WithRenderCategories(categories ...string) RenderOption {
	return func(rc *renderConfig) {
		rc.categories = categories
	}
}

// WithXMLOutput re-indents the rendered document as XML.
func WithXMLOutput() RenderOption {
	return func(rc *renderConfig) {
		rc.prettyXML = true
	}
}

// renderTree renders a merged tree through a handlebars template.
func renderTree(tree *metatree.Tree, templateSource string, sink *diag.Sink, opts ...RenderOption) (string, error) {
	rc := &renderConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	var ropts []render.RendererOption
	if len(rc.categories) > 0 {
		ropts = append(ropts, render.WithCategories(rc.categories...))
	}
	if rc.prettyXML {
		ropts = append(ropts, render.WithPrettyXML())
	}

	renderer, err := render.NewRenderer(templateSource, ropts...)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return renderer.Render(tree, sink)
}
