// Package render turns a reconciled metadata tree into output documents.
// The tree is projected onto a flat field map, enriched with keyword pairs
// and the identifier distribution block, then rendered through a handlebars
// template and pretty-printed when the output is XML.
package render

import (
	"strings"

	"github.com/ausgeophys/metasync/pkg/metatree"
)

// Project flattens the named categories into one field map. Categories are
// visited in the given order and the first category to supply a field wins,
// so the caller's order is the same priority order the tree was merged
// under. Field names are the upper-cased final path segment; values are
// their flat string form. An empty category list projects every category in
// tree insertion order.
func Project(tree *metatree.Tree, categories ...string) map[string]any {
	if len(categories) == 0 {
		categories = tree.Keys()
	}

	out := make(map[string]any)
	for _, name := range categories {
		category := tree.Subtree(name)
		if category == nil {
			continue
		}
		for _, kv := range category.Flatten() {
			segs := strings.Split(kv.Path, ",")
			key := strings.ToUpper(segs[len(segs)-1])
			if _, exists := out[key]; exists {
				continue
			}
			if s := metatree.Stringify(kv.Value); s != "" {
				out[key] = s
			}
		}
	}
	return out
}
