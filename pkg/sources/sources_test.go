package sources_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/manifest"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// fakeStore is an in-memory AttributeStore for tests.
type fakeStore struct {
	tree     *metatree.Tree
	persists int
}

func newFakeStore(pairs ...string) *fakeStore {
	s := &fakeStore{tree: metatree.New()}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.tree.Set(pairs[i], pairs[i+1])
	}
	return s
}

func (s *fakeStore) Get(name string) (any, bool) { return s.tree.Get(name) }
func (s *fakeStore) Set(name string, value any)  { s.tree.Set(name, value) }
func (s *fakeStore) Names() []string             { return s.tree.Keys() }
func (s *fakeStore) Persist() error              { s.persists++; return nil }

func TestAttributeSource(t *testing.T) {
	store := newFakeStore("title", "Total Magnetic Intensity", "survey_id", "1234")
	src := sources.NewAttributeSource(store)

	assert.Equal(t, sources.CategoryAttributes, src.Category())

	frag, err := src.Produce(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, frag)
	assert.Equal(t, []string{"title", "survey_id"}, frag.Tree.Keys())

	v, ok := frag.Tree.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Total Magnetic Intensity", v)
}

type fakeCatalogue struct {
	xml []byte
	err error
}

func (c *fakeCatalogue) FetchRecord(_ context.Context, _ string) ([]byte, error) {
	return c.xml, c.err
}

func TestCatalogueSource(t *testing.T) {
	record := []byte(`<?xml version="1.0"?>
<mdb:MD_Metadata xmlns:mdb="http://standards.iso.org/iso/19115/-3/mdb/1.0">
  <mdb:metadataIdentifier>
    <code>221dcfd8-03d7-5083-e053-10a3070a64e3</code>
  </mdb:metadataIdentifier>
  <mdb:identificationInfo>
    <title>Magnetic Grid of Australia</title>
    <status>completed</status>
  </mdb:identificationInfo>
  <mdb:empty></mdb:empty>
</mdb:MD_Metadata>`)

	src := sources.NewCatalogueSource(&fakeCatalogue{xml: record}, "221dcfd8")
	frag, err := src.Produce(context.Background(), diag.NewSink())
	require.NoError(t, err)
	require.NotNil(t, frag)

	v, ok := frag.Tree.Lookup(metatree.Path{"metadataIdentifier", "code"})
	require.True(t, ok)
	assert.Equal(t, "221dcfd8-03d7-5083-e053-10a3070a64e3", v)

	v, ok = frag.Tree.Lookup(metatree.Path{"identificationInfo", "title"})
	require.True(t, ok)
	assert.Equal(t, "Magnetic Grid of Australia", v)

	// Empty elements contribute nothing.
	_, ok = frag.Tree.Get("empty")
	assert.False(t, ok)
}

func TestCatalogueSourceErrors(t *testing.T) {
	t.Run("no identifier yields nil fragment", func(t *testing.T) {
		src := sources.NewCatalogueSource(&fakeCatalogue{}, "")
		frag, err := src.Produce(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, frag)
	})

	t.Run("fetch failure propagates", func(t *testing.T) {
		src := sources.NewCatalogueSource(&fakeCatalogue{err: errors.New("boom")}, "abc")
		_, err := src.Produce(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("malformed xml", func(t *testing.T) {
		src := sources.NewCatalogueSource(&fakeCatalogue{xml: []byte("<open>")}, "abc")
		_, err := src.Produce(context.Background(), nil)
		assert.Error(t, err)
	})
}

type fakeRegistry struct {
	fields map[int]*metatree.Tree
	errs   map[int]error
}

func (r *fakeRegistry) FetchFields(_ context.Context, id int) (*metatree.Tree, error) {
	if err, ok := r.errs[id]; ok {
		return nil, err
	}
	return r.fields[id], nil
}

func surveyFields(pairs ...string) *metatree.Tree {
	tree := metatree.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		tree.Set(pairs[i], pairs[i+1])
	}
	return tree
}

func TestRegistrySourceMergesSurveys(t *testing.T) {
	reg := &fakeRegistry{fields: map[int]*metatree.Tree{
		1180: surveyFields("SURVEYID", "1180", "SURVEYNAME", "Bundey Basin", "STARTDATE", "01-Jan-10"),
		1219: surveyFields("SURVEYID", "1219", "SURVEYNAME", "Bundey Basin", "STARTDATE", "15-Mar-10"),
	}}
	src := sources.NewRegistrySource(reg, []int{1180, 1219})

	frag, err := src.Produce(context.Background(), diag.NewSink())
	require.NoError(t, err)
	require.NotNil(t, frag)

	v, _ := frag.Tree.Get("SURVEYID")
	assert.Equal(t, "1180, 1219", v)

	// Identical values collapse to one.
	v, _ = frag.Tree.Get("SURVEYNAME")
	assert.Equal(t, "Bundey Basin", v)

	v, _ = frag.Tree.Get("STARTDATE")
	assert.Equal(t, "01-Jan-10, 15-Mar-10", v)
}

func TestRegistrySourcePartialFailure(t *testing.T) {
	reg := &fakeRegistry{
		fields: map[int]*metatree.Tree{1180: surveyFields("SURVEYID", "1180")},
		errs:   map[int]error{1219: errors.New("timeout")},
	}
	src := sources.NewRegistrySource(reg, []int{1180, 1219})
	sink := diag.NewSink()

	frag, err := src.Produce(context.Background(), sink)
	require.NoError(t, err)
	require.NotNil(t, frag)

	v, _ := frag.Tree.Get("SURVEYID")
	assert.Equal(t, "1180", v)
	assert.True(t, sink.Has(diag.Collaborator))
}

func TestRegistrySourceTotalFailure(t *testing.T) {
	reg := &fakeRegistry{errs: map[int]error{1180: errors.New("down")}}
	src := sources.NewRegistrySource(reg, []int{1180})

	_, err := src.Produce(context.Background(), diag.NewSink())
	require.Error(t, err)
	assert.True(t, mserrors.IsCollaboratorUnavailable(err))
}

func TestRegistrySourceNoIDs(t *testing.T) {
	src := sources.NewRegistrySource(&fakeRegistry{}, nil)
	frag, err := src.Produce(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, frag)
}

func TestSurveyIDsFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want []int
	}{
		{"/data/P1180MAG_GRID.nc", []int{1180}},
		{"P1180_P1219_merged.nc", []int{1180, 1219}},
		{"P1180_1180_dup.nc", []int{1180}},
		{"mNSW0409.nc", []int{409}},
		{"no_digits_here.nc", nil},
		{"short_12.nc", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sources.SurveyIDsFromFilename(tc.path), tc.path)
	}
}

func TestHintsFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want sources.FilenameHints
	}{
		{"/data/mNSW0409.nc", sources.FilenameHints{Datatype: "MAG", State: "NSW"}},
		{"gVIC1180.nc", sources.FilenameHints{Datatype: "GRAV", State: "VIC"}},
		{"rT0042.nc", sources.FilenameHints{Datatype: "RAD", State: "TAS"}},
		{"P1180MAG_GRID.nc", sources.FilenameHints{}},
		{"1180.nc", sources.FilenameHints{}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sources.HintsFromFilename(tc.path), tc.path)
	}
}

func TestCheckFilenameHints(t *testing.T) {
	survey := metatree.New()
	survey.Set("STATE", "QLD, NT")
	survey.Set("DATATYPES", "MAG")

	t.Run("consistent name is silent", func(t *testing.T) {
		sink := diag.NewSink()
		sources.CheckFilenameHints(sources.FilenameHints{Datatype: "MAG", State: "QLD"}, survey, sink)
		assert.Zero(t, sink.Len())
	})

	t.Run("state mismatch warns", func(t *testing.T) {
		sink := diag.NewSink()
		sources.CheckFilenameHints(sources.FilenameHints{State: "NSW"}, survey, sink)
		assert.True(t, sink.Has(diag.Consistency))
	})

	t.Run("missing registry field cannot contradict", func(t *testing.T) {
		sink := diag.NewSink()
		bare := metatree.New()
		sources.CheckFilenameHints(sources.FilenameHints{Datatype: "RAD", State: "WA"}, bare, sink)
		assert.Zero(t, sink.Len())
	})
}

func TestSidecarSource(t *testing.T) {
	dir := t.TempDir()
	store := manifest.NewStore()

	t.Run("missing sidecar is not an error", func(t *testing.T) {
		src := sources.NewSidecarSource(store, dir)
		frag, err := src.Produce(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, frag)
	})

	t.Run("identifier surfaces from sidecar", func(t *testing.T) {
		snap, err := manifest.Capture(context.Background(), dir, "abc-123")
		require.NoError(t, err)
		require.NoError(t, store.Save(snap))

		src := sources.NewSidecarSource(store, dir)
		frag, err := src.Produce(context.Background(), nil)
		require.NoError(t, err)
		require.NotNil(t, frag)

		v, ok := frag.Tree.Get("identifier")
		require.True(t, ok)
		assert.Equal(t, "abc-123", v)
	})
}

func TestParseTemplateFields(t *testing.T) {
	doc := []byte(`DATASET_TITLE: "%%Survey/SURVEYNAME%% magnetic grid"
ORGANISATION_NAME: Geoscience Australia
ECAT_ID: "%%Catalogue/eCatId%%"`)

	fields, err := sources.ParseTemplateFields(doc)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "DATASET_TITLE", fields[0].Name)
	assert.Equal(t, "ORGANISATION_NAME", fields[1].Name)
	assert.Equal(t, "Geoscience Australia", fields[1].Text)
}

func TestTemplateSource(t *testing.T) {
	root := metatree.New()
	survey := metatree.New()
	survey.Set("SURVEYNAME", "Bundey Basin")
	root.SetCategory("Survey", survey)

	fields := []sources.TemplateField{
		{Name: "dataset_title", Text: "%%Survey/SURVEYNAME%% magnetic grid"},
		{Name: "publisher", Text: "Geoscience Australia"},
		{Name: "lineage_source", Text: "%%Survey/DATUM%%"},
	}
	src := sources.NewTemplateSource(fields, func() *metatree.Tree { return root })
	sink := diag.NewSink()

	frag, err := src.Produce(context.Background(), sink)
	require.NoError(t, err)
	require.NotNil(t, frag)

	v, _ := frag.Tree.Get("DATASET_TITLE")
	assert.Equal(t, "Bundey Basin magnetic grid", v)

	v, _ = frag.Tree.Get("PUBLISHER")
	assert.Equal(t, "Geoscience Australia", v)

	// An unresolvable reference degrades to the sentinel and warns.
	v, _ = frag.Tree.Get("LINEAGE_SOURCE")
	assert.Equal(t, sources.Unknown, v)
	assert.True(t, sink.Has(diag.AbsentValue))
}
