package sources

import (
	"context"
	"strings"

	"github.com/beevik/etree"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// CatalogueClient fetches the published catalogue record for a dataset
// identifier as an XML document.
type CatalogueClient interface {
	FetchRecord(ctx context.Context, identifier string) ([]byte, error)
}

// CatalogueSource adapts the catalogue record for a dataset into a fragment
// under the Catalogue category. The XML element structure maps directly onto
// the tree: elements with children become subtrees, elements with only text
// become leaves. Namespace prefixes are stripped so lookups stay stable when
// the catalogue changes prefix bindings.
type CatalogueSource struct {
	client     CatalogueClient
	identifier string
}

// NewCatalogueSource returns a source fetching the record for identifier.
func NewCatalogueSource(client CatalogueClient, identifier string) *CatalogueSource {
	return &CatalogueSource{client: client, identifier: identifier}
}

// Category implements Source.
func (s *CatalogueSource) Category() string { return CategoryCatalogue }

// Produce implements Source. A missing or unreachable record is non-fatal
// for the run as a whole, so callers typically record the returned error as
// a collaborator warning and continue.
func (s *CatalogueSource) Produce(ctx context.Context, sink *diag.Sink) (*metatree.Fragment, error) {
	if s.identifier == "" {
		return nil, nil
	}

	data, err := s.client.FetchRecord(ctx, s.identifier)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, mserrors.WrapParse("xml", s.identifier, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, mserrors.NewValidationError("catalogue", s.identifier, "record has no root element")
	}

	tree := metatree.New()
	for _, child := range root.ChildElements() {
		addElement(tree, child, sink)
	}
	return metatree.NewFragment(CategoryCatalogue, tree), nil
}

// addElement folds one XML element into the tree. Repeated sibling tags
// collapse last-writer-wins; the catalogue schema does not repeat the
// elements this tool reads.
func addElement(tree *metatree.Tree, el *etree.Element, sink *diag.Sink) {
	key := localName(el.Tag)
	children := el.ChildElements()
	if len(children) == 0 {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			return
		}
		tree.Set(key, text)
		return
	}

	sub := metatree.New()
	for _, child := range children {
		addElement(sub, child, sink)
	}
	if sub.Len() == 0 {
		return
	}
	if _, exists := tree.Get(key); exists && sink != nil {
		sink.Coerce(key, "repeated catalogue element, keeping the latest occurrence", nil)
	}
	tree.Set(key, sub)
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
