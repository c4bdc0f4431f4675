package sources

import (
	"context"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// AttributeSource adapts a dataset's attribute store into a fragment under
// the Attributes category. Every attribute is carried verbatim; typing and
// coercion happen at the point of use, not here.
type AttributeSource struct {
	store AttributeStore
}

// NewAttributeSource returns a source reading from store.
func NewAttributeSource(store AttributeStore) *AttributeSource {
	return &AttributeSource{store: store}
}

// Category implements Source.
func (s *AttributeSource) Category() string { return CategoryAttributes }

// Produce implements Source. It never fails: an empty store simply yields an
// empty fragment.
func (s *AttributeSource) Produce(_ context.Context, _ *diag.Sink) (*metatree.Fragment, error) {
	tree := metatree.New()
	for _, name := range s.store.Names() {
		if v, ok := s.store.Get(name); ok {
			tree.Set(name, v)
		}
	}
	return metatree.NewFragment(CategoryAttributes, tree), nil
}
