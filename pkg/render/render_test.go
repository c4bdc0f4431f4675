package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/render"
)

func buildTree() *metatree.Tree {
	root := metatree.New()

	survey := metatree.New()
	survey.Set("SURVEYNAME", "Bundey Basin")
	survey.Set("DATUM", "GDA94")
	root.SetCategory("Survey", survey)

	template := metatree.New()
	template.Set("DATASET_TITLE", "Bundey Basin magnetic grid")
	for field, value := range organisationFields() {
		template.Set(field, value)
	}
	template.Set("KEYWORD_THEME_LIST", "magnetics, airborne survey")
	template.Set("KEYWORD_THEME_CODE", "theme.magnetics, theme.airborne")
	root.SetCategory("Template", template)

	computed := metatree.New()
	computed.Set("DOI", "http://dx.doi.org/10.26186/1180")
	computed.Set("YEAR", "2010")
	computed.Set("DATUM", "shadowed")
	root.SetCategory("Computed", computed)

	return root
}

func organisationFields() map[string]string {
	return map[string]string{
		"ORGANISATION_NAME":     "Geoscience Australia",
		"ORGANISATION_PHONE":    "02 6249 9111",
		"ORGANISATION_ADDRESS":  "Cnr Jerrabomberra Ave and Hindmarsh Dr",
		"ORGANISATION_CITY":     "Symonston",
		"ORGANISATION_STATE":    "ACT",
		"ORGANISATION_POSTCODE": "2609",
		"ORGANISATION_COUNTRY":  "Australia",
		"ORGANISATION_EMAIL":    "clientservices@ga.gov.au",
	}
}

func TestProject(t *testing.T) {
	fields := render.Project(buildTree(), "Survey", "Computed")

	assert.Equal(t, "GDA94", fields["DATUM"], "earlier category wins on collision")
	assert.Equal(t, "2010", fields["YEAR"])
	_, ok := fields["DATASET_TITLE"]
	assert.False(t, ok, "unlisted categories are not projected")
}

func TestProjectNestedPaths(t *testing.T) {
	root := metatree.New()
	catalogue := metatree.New()
	extent := metatree.New()
	extent.Set("westBoundLongitude", "135.0")
	catalogue.SetCategory("geographicElement", extent)
	root.SetCategory("Catalogue", catalogue)

	fields := render.Project(root, "Catalogue")
	assert.Equal(t, "135.0", fields["WESTBOUNDLONGITUDE"], "field name is the final path segment")
}

func TestProjectAllCategories(t *testing.T) {
	fields := render.Project(buildTree())
	assert.Equal(t, "Bundey Basin magnetic grid", fields["DATASET_TITLE"])
	assert.Equal(t, "GDA94", fields["DATUM"], "tree insertion order sets priority")
}

func TestExpandKeywordPairs(t *testing.T) {
	fields := map[string]any{
		"KEYWORD_THEME_LIST": "magnetics, airborne survey",
		"KEYWORD_THEME_CODE": "theme.magnetics, theme.airborne",
	}
	render.ExpandKeywordPairs(fields, nil)

	pairs, ok := fields["KEYWORD_THEME"].([]render.KeywordPair)
	require.True(t, ok)
	require.Len(t, pairs, 2)
	assert.Equal(t, render.KeywordPair{Value: "Magnetics", Code: "theme.magnetics"}, pairs[0])
	assert.Equal(t, "Airborne Survey", pairs[1].Value)
}

func TestExpandKeywordPairsMismatch(t *testing.T) {
	fields := map[string]any{
		"KEYWORD_THEME_LIST": "magnetics, gravity",
		"KEYWORD_THEME_CODE": "theme.magnetics",
	}
	sink := diag.NewSink()
	render.ExpandKeywordPairs(fields, sink)

	_, ok := fields["KEYWORD_THEME"]
	assert.False(t, ok, "mismatched lengths are not zipped")
	assert.True(t, sink.Has(diag.Consistency))
	assert.Equal(t, "magnetics, gravity", fields["KEYWORD_THEME_LIST"], "raw fields untouched")
}

func TestAddDistribution(t *testing.T) {
	t.Run("complete fields emit block", func(t *testing.T) {
		fields := map[string]any{
			"DOI":  "http://dx.doi.org/10.26186/1180",
			"UUID": "abc-123",
		}
		for field, value := range organisationFields() {
			fields[field] = value
		}
		render.AddDistribution(fields, nil)

		dist, ok := fields["DOI_DISTRIBUTION"].(render.Distribution)
		require.True(t, ok)
		assert.Equal(t, "http://dx.doi.org/10.26186/1180", dist.DOI)
		assert.Equal(t, "http://dx.doi.org/10.26186/1180", dist.URL)
		assert.Equal(t, "html", dist.Format)
		assert.Equal(t, "Digital Object Identifier for dataset abc-123", dist.Name)
		assert.Equal(t, "Geoscience Australia", dist.Distributor.Name)
		assert.Equal(t, "clientservices@ga.gov.au", dist.Distributor.Email)
	})

	t.Run("no DOI, no block", func(t *testing.T) {
		fields := map[string]any{"ORGANISATION_NAME": "GA"}
		render.AddDistribution(fields, nil)
		_, ok := fields["DOI_DISTRIBUTION"]
		assert.False(t, ok)
	})

	t.Run("incomplete contact fields warn and skip", func(t *testing.T) {
		fields := map[string]any{
			"DOI":               "http://dx.doi.org/10.26186/1180",
			"ORGANISATION_NAME": "Geoscience Australia",
		}
		sink := diag.NewSink()
		render.AddDistribution(fields, sink)

		_, ok := fields["DOI_DISTRIBUTION"]
		assert.False(t, ok)
		assert.True(t, sink.Has(diag.AbsentValue))
	})
}

func TestRendererRender(t *testing.T) {
	tpl := `<record>
  <title>{{DATASET_TITLE}}</title>
  {{#each KEYWORD_THEME}}<keyword code="{{Code}}">{{Value}}</keyword>{{/each}}
  {{#with DOI_DISTRIBUTION}}<onlineResource>{{DOI}}</onlineResource>{{/with}}
</record>`

	r, err := render.NewRenderer(tpl, render.WithPrettyXML())
	require.NoError(t, err)

	out, err := r.Render(buildTree(), diag.NewSink())
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Bundey Basin magnetic grid</title>")
	assert.Contains(t, out, `<keyword code="theme.magnetics">Magnetics</keyword>`)
	assert.Contains(t, out, "<onlineResource>http://dx.doi.org/10.26186/1180</onlineResource>")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<record>"))
}

func TestRendererBadTemplate(t *testing.T) {
	_, err := render.NewRenderer("{{#each}}")
	assert.Error(t, err)
}
