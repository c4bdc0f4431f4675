package reconcile

import (
	"context"
	"strconv"
	"strings"

	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// Mode selects the minting service environment. Test-mode identifiers are
// throwaway: they are used for the current render but never written back to
// the dataset.
type Mode string

// Minting modes.
const (
	ModeTest Mode = "test"
	ModeProd Mode = "prod"
)

// doiResolverPrefix turns a bare DOI name into a resolvable URL.
const doiResolverPrefix = "http://dx.doi.org/"

// MintRequest carries the citation metadata a minting service needs.
type MintRequest struct {
	ECatID      string
	Title       string
	Authors     []string
	Publisher   string
	Year        int
	Subjects    []string
	Description string
}

// MintResult is a successful minting response.
type MintResult struct {
	// Identifier is the bare DOI name, e.g. "10.26186/1180".
	Identifier string

	// Status is the service's response status text.
	Status string
}

// Minter mints persistent identifiers.
type Minter interface {
	// Mint requests a new identifier for the described dataset.
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)

	// Mode reports which environment the minter targets.
	Mode() Mode
}

// AcquireDOI establishes the dataset's persistent identifier. A DOI already
// present in the attribute store wins and is never re-minted. Otherwise the
// minter is called with citation fields drawn from the resolved template;
// a production DOI is staged for exactly one write-back, a test DOI is not.
// Minting failure is never fatal: the field degrades to absent with a
// warning and the run continues.
func (e *Engine) AcquireDOI(ctx context.Context, minter Minter, store sources.AttributeStore) string {
	if v, ok := store.Get(attrDOI); ok {
		if doi, ok := metatree.String(v); ok && strings.TrimSpace(doi) != "" {
			doi = strings.TrimSpace(doi)
			e.setComputed("DOI", doi)
			return doi
		}
	}
	if minter == nil {
		return ""
	}

	res, err := minter.Mint(ctx, e.mintRequest())
	if err != nil {
		e.sink.CollaboratorFailed("minter", err)
		return ""
	}

	doi := doiResolverPrefix + res.Identifier
	e.setComputed("DOI", doi)
	if minter.Mode() == ModeProd {
		store.Set(attrDOI, doi)
		e.storeDirty = true
	}
	return doi
}

// mintRequest assembles citation metadata from the resolved template and
// computed fields. Unknown sentinels pass through; the minting service
// treats them as plain text and the record is corrected on a later run.
func (e *Engine) mintRequest() MintRequest {
	req := MintRequest{
		ECatID:      e.templateField("ECAT_ID"),
		Title:       e.templateField("DATASET_TITLE"),
		Publisher:   e.templateField("ORGANISATION_NAME"),
		Description: e.templateField("LINEAGE_SOURCE"),
	}
	if authors := e.templateField("DATASET_AUTHOR"); authors != "" {
		req.Authors = metatree.StringList(authors)
	}
	if subjects := e.templateField("KEYWORD_THEME_LIST"); subjects != "" {
		req.Subjects = metatree.StringList(subjects)
	}
	if v, ok := e.root.Lookup(metatree.Path{sources.CategoryComputed, "YEAR"}); ok {
		if year, err := strconv.Atoi(metatree.Stringify(v)); err == nil {
			req.Year = year
		}
	}
	return req
}

func (e *Engine) templateField(name string) string {
	v, ok := e.root.Lookup(metatree.Path{sources.CategoryTemplate, name})
	if !ok {
		return ""
	}
	return metatree.Stringify(v)
}
