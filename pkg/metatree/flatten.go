package metatree

// KV is one flattened leaf: a comma-joined path and its rendered value.
type KV struct {
	Path  string
	Value string
}

// Flatten returns every leaf as a path/value pair, depth-first in
// insertion order. Subtrees contribute their leaves; absent values
// render empty.
func (t *Tree) Flatten() []KV {
	var out []KV
	t.flattenInto(nil, &out)
	return out
}

func (t *Tree) flattenInto(at Path, out *[]KV) {
	if t == nil {
		return
	}
	for _, key := range t.keys {
		path := at.Child(key)
		if sub, ok := t.values[key].(*Tree); ok {
			sub.flattenInto(path, out)
			continue
		}
		*out = append(*out, KV{Path: path.String(), Value: Stringify(t.values[key])})
	}
}
