package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Unknown is the sentinel substituted for template elements whose referenced
// value is absent from the merged tree.
const Unknown = "UNKNOWN"

// elementPattern matches one %%Category/Path%% reference in template text.
var elementPattern = regexp.MustCompile(`%%([^%]+)%%`)

// TemplateField is one output field definition: the text may mix literal
// content with %%Category/Path%% references into the merged tree.
type TemplateField struct {
	Name string
	Text string
}

// ParseTemplateFields decodes a template definition document (YAML or JSON)
// into fields, preserving document order.
func ParseTemplateFields(data []byte) ([]TemplateField, error) {
	var doc yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, mserrors.WrapParse("yaml", "template definitions", err)
	}

	fields := make([]TemplateField, 0, len(doc))
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			return nil, mserrors.NewValidationError("template", item.Key, "field name must be a string")
		}
		text, ok := item.Value.(string)
		if !ok {
			return nil, mserrors.NewValidationError("template", name, "field text must be a string")
		}
		fields = append(fields, TemplateField{Name: name, Text: text})
	}
	return fields, nil
}

// TreeProvider supplies the merged tree a template resolves against. The
// template source is always merged after the origin sources, so the provider
// is a live view of the engine's tree rather than a captured copy.
type TreeProvider func() *metatree.Tree

// TemplateSource resolves field definitions against the merged tree and
// files the results under the Template category. Output field names are
// upper-cased; unresolvable references substitute the Unknown sentinel and
// record a warning.
type TemplateSource struct {
	fields []TemplateField
	tree   TreeProvider
}

// NewTemplateSource returns a source resolving fields against the tree
// supplied by provider.
func NewTemplateSource(fields []TemplateField, provider TreeProvider) *TemplateSource {
	return &TemplateSource{fields: fields, tree: provider}
}

// Category implements Source.
func (s *TemplateSource) Category() string { return CategoryTemplate }

// Produce implements Source.
func (s *TemplateSource) Produce(_ context.Context, sink *diag.Sink) (*metatree.Fragment, error) {
	if len(s.fields) == 0 {
		return nil, nil
	}

	tree := metatree.New()
	root := s.tree()
	for _, field := range s.fields {
		name := strings.ToUpper(field.Name)
		tree.Set(name, resolveText(root, name, field.Text, sink))
	}
	return metatree.NewFragment(CategoryTemplate, tree), nil
}

// resolveText substitutes every %%path%% element in text with the referenced
// leaf's string form.
func resolveText(root *metatree.Tree, field, text string, sink *diag.Sink) string {
	return elementPattern.ReplaceAllStringFunc(text, func(match string) string {
		ref := strings.Trim(match, "%")
		path := metatree.Path(strings.Split(ref, "/"))
		v, ok := root.Lookup(path)
		if !ok {
			if sink != nil {
				sink.Absent(field, fmt.Sprintf("template reference %q has no value", ref))
			}
			return Unknown
		}
		str := metatree.Stringify(v)
		if str == "" {
			if sink != nil {
				sink.Absent(field, fmt.Sprintf("template reference %q is empty", ref))
			}
			return Unknown
		}
		return str
	})
}
