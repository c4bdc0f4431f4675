package render

import (
	"github.com/aymerick/raymond"
	"github.com/beevik/etree"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Renderer renders reconciled metadata through a handlebars template.
type Renderer struct {
	template   *raymond.Template
	categories []string
	prettyXML  bool
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithCategories sets the projection priority order. Defaults to the tree's
// own category order.
func WithCategories(categories ...string) RendererOption {
	return func(r *Renderer) {
		r.categories = categories
	}
}

// WithPrettyXML re-indents the rendered output as XML.
func WithPrettyXML() RendererOption {
	return func(r *Renderer) {
		r.prettyXML = true
	}
}

// NewRenderer parses a handlebars template.
func NewRenderer(source string, opts ...RendererOption) (*Renderer, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, mserrors.WrapParse("template", "", err)
	}
	r := &Renderer{template: tpl}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render projects the tree, expands keyword pairs and the distribution
// block, and executes the template.
func (r *Renderer) Render(tree *metatree.Tree, sink *diag.Sink) (string, error) {
	fields := Project(tree, r.categories...)
	ExpandKeywordPairs(fields, sink)
	AddDistribution(fields, sink)

	out, err := r.template.Exec(fields)
	if err != nil {
		return "", mserrors.WrapParse("template", "", err)
	}
	if !r.prettyXML {
		return out, nil
	}
	return prettifyXML(out)
}

// prettifyXML re-indents a rendered XML document. The templates interleave
// literal markup with substituted blocks, so the raw output has inconsistent
// indentation.
func prettifyXML(s string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return "", mserrors.WrapParse("xml", "rendered output", err)
	}
	doc.Indent(2)
	return doc.WriteToString()
}
