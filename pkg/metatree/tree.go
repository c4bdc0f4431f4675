// Package metatree provides the hierarchical, path-addressed metadata
// container shared by all source adapters and the reconciliation engine.
// A tree maps category and field names to either leaf values or subtrees.
// Leaf values are stored opaquely (string, number, list of strings, or nil)
// and typed at the point of use; callers coerce and treat coercion failure
// as "value absent" rather than fatal.
package metatree

// Tree is a mapping from name to leaf value or subtree. Names are unique
// at each level. Insertion order is irrelevant to semantics but preserved
// for deterministic serialization and flattening.
type Tree struct {
	keys   []string
	values map[string]any // leaf value or *Tree
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Set inserts or replaces the value for a name, preserving first-insertion
// order. Value may be a leaf or a *Tree.
func (t *Tree) Set(name string, value any) {
	if _, exists := t.values[name]; !exists {
		t.keys = append(t.keys, name)
	}
	t.values[name] = value
}

// Get returns the value stored under a name and whether it was present.
func (t *Tree) Get(name string) (any, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Delete removes a name and its value.
func (t *Tree) Delete(name string) {
	if _, exists := t.values[name]; !exists {
		return
	}
	delete(t.values, name)
	for i, k := range t.keys {
		if k == name {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the names at this level in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of names at this level.
func (t *Tree) Len() int {
	return len(t.keys)
}

// Subtree returns the subtree stored under a name, or nil if the name is
// absent or holds a leaf.
func (t *Tree) Subtree(name string) *Tree {
	v, ok := t.values[name]
	if !ok {
		return nil
	}
	sub, ok := v.(*Tree)
	if !ok {
		return nil
	}
	return sub
}

// Lookup traverses the path and returns the value it addresses. The second
// return is false when any segment is missing or an intermediate node is a
// leaf where a subtree was expected; lookup misses are never errors.
func (t *Tree) Lookup(path Path) (any, bool) {
	if t == nil || len(path) == 0 {
		return nil, false
	}

	current := t
	for i, segment := range path {
		v, ok := current.values[segment]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		sub, ok := v.(*Tree)
		if !ok {
			// Intermediate leaf where a subtree was expected.
			return nil, false
		}
		current = sub
	}
	return nil, false
}

// SetCategory replaces or creates the named top-level category wholesale.
// It is used when ingesting a fresh source fragment prior to merge.
func (t *Tree) SetCategory(name string, category *Tree) {
	t.Set(name, category)
}

// Clone returns a deep copy of the tree. Leaf string slices are copied;
// other leaf values are assumed immutable.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := New()
	for _, k := range t.keys {
		switch v := t.values[k].(type) {
		case *Tree:
			out.Set(k, v.Clone())
		case []string:
			cp := make([]string, len(v))
			copy(cp, v)
			out.Set(k, cp)
		default:
			out.Set(k, v)
		}
	}
	return out
}

// Fragment is the partial tree produced by one source adapter, rooted at
// exactly one category name. Adapters never populate more than their own
// category.
type Fragment struct {
	Category string
	Tree     *Tree
}

// NewFragment creates a fragment for a category. A nil tree is replaced
// with an empty one.
func NewFragment(category string, tree *Tree) *Fragment {
	if tree == nil {
		tree = New()
	}
	return &Fragment{Category: category, Tree: tree}
}
