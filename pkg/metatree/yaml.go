package metatree

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// MarshalYAML serializes the tree as an ordered mapping so repeated
// serializations of the same tree are byte-identical.
func (t *Tree) MarshalYAML() (any, error) {
	return t.mapSlice(), nil
}

func (t *Tree) mapSlice() yaml.MapSlice {
	ms := make(yaml.MapSlice, 0, len(t.keys))
	for _, key := range t.keys {
		switch v := t.values[key].(type) {
		case *Tree:
			ms = append(ms, yaml.MapItem{Key: key, Value: v.mapSlice()})
		default:
			ms = append(ms, yaml.MapItem{Key: key, Value: v})
		}
	}
	return ms
}

// FromYAML parses YAML text into a tree, preserving document order.
// Mapping values become subtrees; sequences become string lists.
func FromYAML(data []byte) (*Tree, error) {
	var ms yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("parsing metadata tree: %w", err)
	}
	return fromMapSlice(ms), nil
}

func fromMapSlice(ms yaml.MapSlice) *Tree {
	t := New()
	for _, item := range ms {
		key := fmt.Sprintf("%v", item.Key)
		t.Set(key, fromYAMLValue(item.Value))
	}
	return t
}

func fromYAMLValue(v any) any {
	switch val := v.(type) {
	case yaml.MapSlice:
		return fromMapSlice(val)
	case map[string]any:
		t := New()
		for k, inner := range val {
			t.Set(k, fromYAMLValue(inner))
		}
		return t
	case []any:
		list := make([]string, 0, len(val))
		for _, item := range val {
			list = append(list, Stringify(fromYAMLValue(item)))
		}
		return list
	case uint64:
		return int64(val)
	default:
		return val
	}
}
