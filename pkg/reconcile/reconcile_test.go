package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/reconcile"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// memStore is an in-memory AttributeStore counting persist calls.
type memStore struct {
	tree     *metatree.Tree
	sets     map[string]int
	persists int
}

func newMemStore(pairs ...string) *memStore {
	s := &memStore{tree: metatree.New(), sets: make(map[string]int)}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.tree.Set(pairs[i], pairs[i+1])
	}
	return s
}

func (s *memStore) Get(name string) (any, bool) { return s.tree.Get(name) }
func (s *memStore) Set(name string, value any)  { s.sets[name]++; s.tree.Set(name, value) }
func (s *memStore) Names() []string             { return s.tree.Keys() }
func (s *memStore) Persist() error              { s.persists++; return nil }

func categoryFragment(category string, pairs ...string) *metatree.Fragment {
	tree := metatree.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		tree.Set(pairs[i], pairs[i+1])
	}
	return metatree.NewFragment(category, tree)
}

func TestMergePriorityOrder(t *testing.T) {
	eng := reconcile.New()

	eng.MergeFragment(categoryFragment(sources.CategorySurvey, "DATUM", "GDA94"), false)
	eng.MergeFragment(categoryFragment(sources.CategorySurvey, "DATUM", "WGS84", "OPERATOR", "GA"), false)

	v, _ := eng.Root().Lookup(metatree.Path{"Survey", "DATUM"})
	assert.Equal(t, "GDA94", v, "earlier source wins on conflict")

	v, _ = eng.Root().Lookup(metatree.Path{"Survey", "OPERATOR"})
	assert.Equal(t, "GA", v, "later source fills gaps")
}

func TestMergeOverwriteAuthoritative(t *testing.T) {
	eng := reconcile.New()

	eng.MergeFragment(categoryFragment(sources.CategoryComputed, "YEAR", "2010"), false)
	eng.MergeFragment(categoryFragment(sources.CategoryComputed, "YEAR", "2016"), true)

	v, _ := eng.Root().Lookup(metatree.Path{"Computed", "YEAR"})
	assert.Equal(t, "2016", v)
}

type failingSource struct{}

func (failingSource) Category() string { return sources.CategorySurvey }
func (failingSource) Produce(context.Context, *diag.Sink) (*metatree.Fragment, error) {
	return nil, errors.New("registry down")
}

func TestMergeSourceError(t *testing.T) {
	eng := reconcile.New()
	err := eng.Merge(context.Background(), failingSource{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Survey")
}

func TestResolveIdentifierFromStore(t *testing.T) {
	store := newMemStore("uuid", "store-id")
	eng := reconcile.New()

	id := eng.ResolveIdentifier(store)
	assert.Equal(t, "store-id", id)
	assert.False(t, eng.StoreDirty(), "store value needs no write-back")
	assert.Zero(t, store.sets["uuid"])
}

func TestResolveIdentifierFromSidecar(t *testing.T) {
	store := newMemStore()
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategorySidecar, "identifier", "abc-123"), false)

	id := eng.ResolveIdentifier(store)
	assert.Equal(t, "abc-123", id)
	assert.True(t, eng.StoreDirty())
	assert.Equal(t, 1, store.sets["uuid"], "written back exactly once")

	v, _ := store.Get("uuid")
	assert.Equal(t, "abc-123", v)
}

func TestResolveIdentifierFresh(t *testing.T) {
	store := newMemStore("uuid", "  ")
	eng := reconcile.New(reconcile.WithIDGenerator(func() string { return "fresh-id" }))

	id := eng.ResolveIdentifier(store)
	assert.Equal(t, "fresh-id", id, "blank store value does not count")
	assert.True(t, eng.StoreDirty())
	assert.Equal(t, 1, store.sets["uuid"])
}

func TestReconcileSurveyIDs(t *testing.T) {
	t.Run("set equality tolerates formatting", func(t *testing.T) {
		store := newMemStore("survey_id", " 1219 ,1180, 1180")
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategorySurvey, "SURVEYID", "1180, 1219"), false)

		eng.ReconcileSurveyIDs(store)
		assert.Zero(t, eng.Sink().Len())
		assert.Zero(t, store.sets["survey_id"])
	})

	t.Run("mismatch warns and keeps store value", func(t *testing.T) {
		store := newMemStore("survey_id", "1180")
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategorySurvey, "SURVEYID", "1180, 1219"), false)

		eng.ReconcileSurveyIDs(store)
		assert.True(t, eng.Sink().Has(diag.Consistency))

		v, _ := store.Get("survey_id")
		assert.Equal(t, "1180", v)
	})

	t.Run("absent store adopts registry value", func(t *testing.T) {
		store := newMemStore()
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategorySurvey, "SURVEYID", "1180, 1219"), false)

		eng.ReconcileSurveyIDs(store)
		assert.False(t, eng.Sink().Has(diag.Consistency))
		assert.True(t, eng.StoreDirty())

		v, _ := store.Get("survey_id")
		assert.Equal(t, "1180, 1219", v)
	})

	t.Run("no registry value is a no-op", func(t *testing.T) {
		store := newMemStore("survey_id", "1180")
		eng := reconcile.New()
		eng.ReconcileSurveyIDs(store)
		assert.Zero(t, eng.Sink().Len())
	})
}

func TestDeriveDates(t *testing.T) {
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategorySurvey,
		"STARTDATE", "15-Mar-10, 01-Jan-10",
		"ENDDATE", "30-Jun-10, 12-Nov-10"), false)
	eng.Derive("")

	v, _ := eng.Root().Lookup(metatree.Path{"Computed", "START_DATE"})
	assert.Equal(t, "2010-01-01", v, "earliest of the list")

	v, _ = eng.Root().Lookup(metatree.Path{"Computed", "END_DATE"})
	assert.Equal(t, "2010-11-12", v, "latest of the list")

	v, _ = eng.Root().Lookup(metatree.Path{"Computed", "YEAR"})
	assert.Equal(t, "2010", v)
}

func TestDeriveDatesMalformed(t *testing.T) {
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategorySurvey,
		"STARTDATE", "not-a-date, also-bad"), false)
	eng.Derive("")

	v, _ := eng.Root().Lookup(metatree.Path{"Computed", "START_DATE"})
	assert.Equal(t, sources.Unknown, v)
	assert.True(t, eng.Sink().Has(diag.Coercion))
	assert.True(t, eng.Sink().Has(diag.AbsentValue))
}

func TestDeriveDatesPartialMalformed(t *testing.T) {
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategorySurvey,
		"STARTDATE", "garbage, 01-Jan-10"), false)
	eng.Derive("")

	v, _ := eng.Root().Lookup(metatree.Path{"Computed", "START_DATE"})
	assert.Equal(t, "2010-01-01", v, "unparsable entries are skipped, not fatal")
}

func TestDeriveConversionDatetime(t *testing.T) {
	t.Run("from history prefix", func(t *testing.T) {
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategoryAttributes,
			"history", "Wed Oct 26 14:34:42 2016: GDAL CreateCopy( /local/tmp/P1180.nc )"), false)
		eng.Derive("")

		v, _ := eng.Root().Lookup(metatree.Path{"Computed", "CONVERSION_DATETIME"})
		assert.Equal(t, "2016-10-26T14:34:42", v)
	})

	t.Run("falls back to date_modified", func(t *testing.T) {
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategoryAttributes,
			"history", "no timestamp here",
			"date_modified", "2016-10-26T14:34:42"), false)
		eng.Derive("")

		v, _ := eng.Root().Lookup(metatree.Path{"Computed", "CONVERSION_DATETIME"})
		assert.Equal(t, "2016-10-26T14:34:42", v)
	})

	t.Run("sentinel when nothing parses", func(t *testing.T) {
		eng := reconcile.New()
		eng.Derive("")

		v, _ := eng.Root().Lookup(metatree.Path{"Computed", "CONVERSION_DATETIME"})
		assert.Equal(t, sources.Unknown, v)
	})
}

func TestDeriveExtents(t *testing.T) {
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategoryAttributes,
		"geospatial_bounds", "POLYGON((134.0 -23.0, 135.5 -23.0, 135.5 -21.5, 134.0 -21.5, 134.0 -23.0))"), false)
	eng.Derive("/data/P1180MAG.nc")

	computed := eng.Root().Subtree("Computed")
	require.NotNil(t, computed)

	v, _ := computed.Get("WLON")
	assert.Equal(t, 134.0, v)
	v, _ = computed.Get("ELON")
	assert.Equal(t, 135.5, v)
	v, _ = computed.Get("SLAT")
	assert.Equal(t, -23.0, v)
	v, _ = computed.Get("NLAT")
	assert.Equal(t, -21.5, v)

	v, _ = computed.Get("FILENAME")
	assert.Equal(t, "P1180MAG.nc", v)
}

func TestDeriveCellSize(t *testing.T) {
	eng := reconcile.New()
	eng.MergeFragment(categoryFragment(sources.CategoryAttributes,
		"nominal_cell_metres", "38.0, 44.0",
		"nominal_cell_degrees", "0.000416667, 0.000416667"), false)
	eng.Derive("")

	computed := eng.Root().Subtree("Computed")
	require.NotNil(t, computed)

	v, _ := computed.Get("CELLSIZE_M")
	assert.Equal(t, 40, v, "mean rounded to the nearest ten metres")

	v, _ = computed.Get("CELLSIZE_DEG")
	assert.Equal(t, 0.00041667, v, "mean rounded to eight decimals")
}

type fakeMinter struct {
	mode   reconcile.Mode
	result *reconcile.MintResult
	err    error
	calls  int
	last   reconcile.MintRequest
}

func (m *fakeMinter) Mint(_ context.Context, req reconcile.MintRequest) (*reconcile.MintResult, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *fakeMinter) Mode() reconcile.Mode { return m.mode }

func TestAcquireDOI(t *testing.T) {
	t.Run("existing DOI wins without minting", func(t *testing.T) {
		store := newMemStore("doi", "http://dx.doi.org/10.26186/1180")
		minter := &fakeMinter{mode: reconcile.ModeProd}
		eng := reconcile.New()

		doi := eng.AcquireDOI(context.Background(), minter, store)
		assert.Equal(t, "http://dx.doi.org/10.26186/1180", doi)
		assert.Zero(t, minter.calls)
	})

	t.Run("production DOI is staged for write-back", func(t *testing.T) {
		store := newMemStore()
		minter := &fakeMinter{mode: reconcile.ModeProd, result: &reconcile.MintResult{Identifier: "10.26186/1180"}}
		eng := reconcile.New()
		eng.MergeFragment(categoryFragment(sources.CategoryTemplate,
			"DATASET_TITLE", "Bundey Basin magnetic grid",
			"ORGANISATION_NAME", "Geoscience Australia"), false)

		doi := eng.AcquireDOI(context.Background(), minter, store)
		assert.Equal(t, "http://dx.doi.org/10.26186/1180", doi)
		assert.Equal(t, "Bundey Basin magnetic grid", minter.last.Title)
		assert.True(t, eng.StoreDirty())

		v, _ := store.Get("doi")
		assert.Equal(t, doi, v)
	})

	t.Run("test DOI is never persisted", func(t *testing.T) {
		store := newMemStore()
		minter := &fakeMinter{mode: reconcile.ModeTest, result: &reconcile.MintResult{Identifier: "10.5072/test"}}
		eng := reconcile.New()

		doi := eng.AcquireDOI(context.Background(), minter, store)
		assert.Equal(t, "http://dx.doi.org/10.5072/test", doi)
		assert.Zero(t, store.sets["doi"])
		assert.False(t, eng.StoreDirty())
	})

	t.Run("minting failure degrades to absent", func(t *testing.T) {
		store := newMemStore()
		minter := &fakeMinter{mode: reconcile.ModeProd, err: errors.New("service unavailable")}
		eng := reconcile.New()

		doi := eng.AcquireDOI(context.Background(), minter, store)
		assert.Empty(t, doi)
		assert.True(t, eng.Sink().Has(diag.Collaborator))

		_, ok := eng.Root().Lookup(metatree.Path{"Computed", "DOI"})
		assert.False(t, ok)
	})
}

func TestResult(t *testing.T) {
	store := newMemStore("uuid", "abc-123", "doi", "http://dx.doi.org/10.26186/1180")
	eng := reconcile.New()

	eng.ResolveIdentifier(store)
	eng.AcquireDOI(context.Background(), nil, store)
	res := eng.Result()

	assert.Equal(t, "abc-123", res.Identifier)
	assert.Equal(t, "http://dx.doi.org/10.26186/1180", res.DOI)
	assert.Same(t, eng.Root(), res.Tree)
}
