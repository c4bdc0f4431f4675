package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausgeophys/metasync/internal/clients/registry"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
)

const surveyRow = `<ROWSET>
  <ROW>
    <SURVEYID>1180</SURVEYID>
    <SURVEYNAME>Bundey Basin</SURVEYNAME>
    <STARTDATE>01-Jan-10</STARTDATE>
    <ENDDATE>30-Jun-10</ENDDATE>
    <OPERATOR></OPERATOR>
  </ROW>
</ROWSET>`

func TestFetchFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1180", r.URL.Query().Get("surveyno"))
		_, _ = w.Write([]byte(surveyRow))
	}))
	defer srv.Close()

	client := registry.New(srv.URL)
	fields, err := client.FetchFields(context.Background(), 1180)
	require.NoError(t, err)

	assert.Equal(t, []string{"SURVEYID", "SURVEYNAME", "STARTDATE", "ENDDATE"}, fields.Keys(),
		"row order kept, empty fields dropped")

	v, _ := fields.Get("SURVEYNAME")
	assert.Equal(t, "Bundey Basin", v)
}

func TestFetchFieldsUnknownSurvey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<ROWSET></ROWSET>`))
	}))
	defer srv.Close()

	client := registry.New(srv.URL)
	_, err := client.FetchFields(context.Background(), 9999)
	assert.True(t, mserrors.IsNotFound(err))
}

func TestFetchFieldsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := registry.New(srv.URL)
	_, err := client.FetchFields(context.Background(), 1180)
	require.Error(t, err)

	var collab *mserrors.CollaboratorError
	assert.ErrorAs(t, err, &collab)
}

func TestFetchFieldsMalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<open`))
	}))
	defer srv.Close()

	client := registry.New(srv.URL)
	_, err := client.FetchFields(context.Background(), 1180)
	assert.Error(t, err)
}
