package sources

import (
	"context"
	"time"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/manifest"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// SidecarSource adapts the manifest sidecar next to a dataset into a
// fragment under the Sidecar category. Its main contribution is the cached
// dataset identifier, which seeds identity resolution when the attribute
// store has none.
type SidecarSource struct {
	store    *manifest.Store
	basePath string
}

// NewSidecarSource returns a source reading the sidecar under basePath.
func NewSidecarSource(store *manifest.Store, basePath string) *SidecarSource {
	return &SidecarSource{store: store, basePath: basePath}
}

// Category implements Source.
func (s *SidecarSource) Category() string { return CategorySidecar }

// Produce implements Source. A dataset without a sidecar yields a nil
// fragment; that is the normal state for first-time runs.
func (s *SidecarSource) Produce(_ context.Context, _ *diag.Sink) (*metatree.Fragment, error) {
	snap, err := s.store.Load(s.basePath)
	if err != nil {
		if mserrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	tree := metatree.New()
	tree.Set("identifier", snap.Identifier)
	tree.Set("captured_at", snap.CapturedAt.Format(time.RFC3339))
	tree.Set("base_path", snap.BasePath)
	return metatree.NewFragment(CategorySidecar, tree), nil
}
