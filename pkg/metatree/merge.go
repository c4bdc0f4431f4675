package metatree

import "fmt"

// WarnFunc receives non-fatal merge diagnostics such as leaf type
// mismatches. A nil WarnFunc discards them.
type WarnFunc func(path Path, message string)

// Merge copies src into dst field by field, recursively.
//
// For each leaf field: when dst's current value is absent the src value is
// taken; when both are present and overwrite is false the existing dst
// value is kept (first-writer-wins); when overwrite is true the src value
// replaces dst's. A leaf whose value is nil, an empty string or an empty
// list counts as absent. Kind mismatches between kept and offered leaf
// values (scalar vs list) are reported through warn, never as errors.
func Merge(dst, src *Tree, overwrite bool, warn WarnFunc) {
	mergeTrees(dst, src, nil, overwrite, warn)
}

func mergeTrees(dst, src *Tree, at Path, overwrite bool, warn WarnFunc) {
	if src == nil {
		return
	}

	for _, key := range src.keys {
		srcVal := src.values[key]
		path := at.Child(key)

		srcSub, srcIsTree := srcVal.(*Tree)
		dstVal, dstExists := dst.values[key]
		dstSub, dstIsTree := dstVal.(*Tree)

		switch {
		case srcIsTree && dstIsTree:
			mergeTrees(dstSub, srcSub, path, overwrite, warn)

		case srcIsTree && !dstExists:
			dst.Set(key, srcSub.Clone())

		case srcIsTree:
			// Subtree offered where dst holds a leaf.
			if overwrite || !leafPresent(dstVal) {
				dst.Set(key, srcSub.Clone())
			} else {
				warnf(warn, path, "kept existing leaf over offered subtree")
			}

		case dstIsTree:
			// Leaf offered where dst holds a subtree.
			if overwrite {
				dst.Set(key, srcVal)
			} else {
				warnf(warn, path, "kept existing subtree over offered leaf")
			}

		default:
			mergeLeaf(dst, key, dstVal, srcVal, path, overwrite, warn)
		}
	}
}

func mergeLeaf(dst *Tree, key string, dstVal, srcVal any, path Path, overwrite bool, warn WarnFunc) {
	if !leafPresent(dstVal) {
		dst.Set(key, srcVal)
		return
	}
	if overwrite {
		dst.Set(key, srcVal)
		return
	}
	if leafPresent(srcVal) && leafKind(dstVal) != leafKind(srcVal) {
		warnf(warn, path, fmt.Sprintf("kept existing %s over offered %s", leafKind(dstVal), leafKind(srcVal)))
	}
}

// leafPresent reports whether a leaf value counts as present for merge
// purposes. nil, empty strings and empty lists are absent.
func leafPresent(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	default:
		return true
	}
}

func leafKind(v any) string {
	if _, ok := v.([]string); ok {
		return "list"
	}
	return "scalar"
}

func warnf(warn WarnFunc, path Path, message string) {
	if warn != nil {
		warn(path, message)
	}
}
