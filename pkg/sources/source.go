// Package sources defines the metadata fragment producers that feed the
// reconciliation engine. Each adapter wraps one origin (attribute store,
// catalogue service, survey registry, sidecar cache, render template) and
// converts its native representation into a metatree.Fragment under the
// origin's category.
package sources

import (
	"context"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Category names for the fragments each adapter produces. The reconciliation
// engine files every fragment under its category key, so two sources never
// collide even when they describe the same field.
const (
	CategoryAttributes = "Attributes"
	CategorySurvey     = "Survey"
	CategoryCatalogue  = "Catalogue"
	CategorySidecar    = "Sidecar"
	CategoryTemplate   = "Template"
	CategoryComputed   = "Computed"
)

// Source produces a metadata fragment from a single origin. Produce is
// allowed to record non-fatal warnings on the sink; it returns an error only
// when the origin yielded nothing usable at all.
type Source interface {
	// Category reports the category key the fragment files under.
	Category() string

	// Produce fetches or derives the fragment. A nil fragment with a nil
	// error means the origin had nothing to contribute this run.
	Produce(ctx context.Context, sink *diag.Sink) (*metatree.Fragment, error)
}

// AttributeStore is the read/write view of a dataset's own attribute bag.
// Implementations persist to the dataset's native container (a NetCDF
// header, a YAML sidecar, an in-memory map in tests).
type AttributeStore interface {
	// Get returns the attribute value and whether it is present.
	Get(name string) (any, bool)

	// Set stages an attribute value. Nothing is written until Persist.
	Set(name string, value any)

	// Names returns the attribute names in insertion order.
	Names() []string

	// Persist writes staged changes back to the underlying container.
	Persist() error
}
