package metatree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausgeophys/metasync/pkg/metatree"
)

func leafTree(pairs ...string) *metatree.Tree {
	t := metatree.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Set(pairs[i], pairs[i+1])
	}
	return t
}

func TestMergeFirstWriterWins(t *testing.T) {
	dst := leafTree("TITLE", "from attributes")
	src := leafTree("TITLE", "from catalogue", "LINEAGE", "converted 2016")

	metatree.Merge(dst, src, false, nil)

	v, _ := dst.Get("TITLE")
	assert.Equal(t, "from attributes", v)
	v, _ = dst.Get("LINEAGE")
	assert.Equal(t, "converted 2016", v)
}

func TestMergeOverwrite(t *testing.T) {
	dst := leafTree("TITLE", "stale")
	src := leafTree("TITLE", "authoritative")

	metatree.Merge(dst, src, true, nil)

	v, _ := dst.Get("TITLE")
	assert.Equal(t, "authoritative", v)
}

func TestMergeIdempotent(t *testing.T) {
	dst := metatree.New()
	src := leafTree("A", "1", "B", "2")
	sub := leafTree("X", "9")
	src.Set("Nested", sub)

	metatree.Merge(dst, src, false, nil)
	once := dst.Flatten()

	metatree.Merge(dst, src, false, nil)
	twice := dst.Flatten()

	assert.Equal(t, once, twice)
}

func TestMergeOrderMatters(t *testing.T) {
	a := leafTree("X", "from-a")
	b := leafTree("X", "from-b")

	t.Run("a then b keeps a", func(t *testing.T) {
		dst := metatree.New()
		metatree.Merge(dst, a, false, nil)
		metatree.Merge(dst, b, false, nil)
		v, _ := dst.Get("X")
		assert.Equal(t, "from-a", v)
	})

	t.Run("b then a keeps b", func(t *testing.T) {
		dst := metatree.New()
		metatree.Merge(dst, b, false, nil)
		metatree.Merge(dst, a, false, nil)
		v, _ := dst.Get("X")
		assert.Equal(t, "from-b", v)
	})
}

func TestMergeAbsentDestinationTakesFragment(t *testing.T) {
	dst := metatree.New()
	dst.Set("EMPTY", "")
	dst.Set("NIL", nil)

	src := leafTree("EMPTY", "filled", "NIL", "also filled")
	metatree.Merge(dst, src, false, nil)

	v, _ := dst.Get("EMPTY")
	assert.Equal(t, "filled", v)
	v, _ = dst.Get("NIL")
	assert.Equal(t, "also filled", v)
}

func TestMergeRecursesIntoSubtrees(t *testing.T) {
	dst := metatree.New()
	dst.Set("Survey", leafTree("SURVEYID", "871"))

	src := metatree.New()
	src.Set("Survey", leafTree("SURVEYID", "999", "STATE", "WA"))

	metatree.Merge(dst, src, false, nil)

	v, _ := dst.Lookup(metatree.Path{"Survey", "SURVEYID"})
	assert.Equal(t, "871", v)
	v, _ = dst.Lookup(metatree.Path{"Survey", "STATE"})
	assert.Equal(t, "WA", v)
}

func TestMergeTypeMismatchKeepsRootAndWarns(t *testing.T) {
	dst := metatree.New()
	dst.Set("KEYWORDS", "magnetics, gravity")

	src := metatree.New()
	src.Set("KEYWORDS", []string{"radiometrics"})

	var warned []string
	metatree.Merge(dst, src, false, func(path metatree.Path, msg string) {
		warned = append(warned, path.String()+": "+msg)
	})

	v, _ := dst.Get("KEYWORDS")
	assert.Equal(t, "magnetics, gravity", v)
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], "KEYWORDS")
}

func TestMergeSubtreeLeafConflict(t *testing.T) {
	t.Run("keeps leaf without overwrite", func(t *testing.T) {
		dst := leafTree("Node", "leaf value")
		src := metatree.New()
		src.Set("Node", leafTree("inner", "x"))

		var warnings int
		metatree.Merge(dst, src, false, func(metatree.Path, string) { warnings++ })

		v, _ := dst.Get("Node")
		assert.Equal(t, "leaf value", v)
		assert.Equal(t, 1, warnings)
	})

	t.Run("replaces leaf with overwrite", func(t *testing.T) {
		dst := leafTree("Node", "leaf value")
		src := metatree.New()
		src.Set("Node", leafTree("inner", "x"))

		metatree.Merge(dst, src, true, nil)

		v, _ := dst.Lookup(metatree.Path{"Node", "inner"})
		assert.Equal(t, "x", v)
	})
}

func TestMergeClonesSourceSubtrees(t *testing.T) {
	dst := metatree.New()
	src := metatree.New()
	inner := leafTree("A", "1")
	src.Set("Nested", inner)

	metatree.Merge(dst, src, false, nil)
	inner.Set("A", "mutated")

	v, _ := dst.Lookup(metatree.Path{"Nested", "A"})
	assert.Equal(t, "1", v, "merged subtree must not alias the fragment")
}
