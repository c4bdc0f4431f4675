package sources

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ausgeophys/metasync/pkg/diag"
	mserrors "github.com/ausgeophys/metasync/pkg/errors"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// RegistryClient fetches the survey registry fields for one survey. The
// returned tree is flat: field name to string value, in registry order.
type RegistryClient interface {
	FetchFields(ctx context.Context, surveyID int) (*metatree.Tree, error)
}

// RegistrySource adapts one or more survey registry records into a fragment
// under the Survey category. When a dataset spans multiple surveys the
// per-survey values are merged field by field: comma-separated lists are
// concatenated with duplicates removed, order preserved.
type RegistrySource struct {
	client    RegistryClient
	surveyIDs []int
}

// NewRegistrySource returns a source fetching the given surveys in order.
func NewRegistrySource(client RegistryClient, surveyIDs []int) *RegistrySource {
	return &RegistrySource{client: client, surveyIDs: surveyIDs}
}

// Category implements Source.
func (s *RegistrySource) Category() string { return CategorySurvey }

// Produce implements Source. Individual survey failures are recorded on the
// sink and skipped; an error is returned only when no survey yielded any
// fields, so callers can fall back to a secondary registry.
func (s *RegistrySource) Produce(ctx context.Context, sink *diag.Sink) (*metatree.Fragment, error) {
	if len(s.surveyIDs) == 0 {
		return nil, nil
	}

	merged := metatree.New()
	fetched := 0
	for _, id := range s.surveyIDs {
		fields, err := s.client.FetchFields(ctx, id)
		if err != nil {
			if sink != nil {
				sink.CollaboratorFailed("registry", fmt.Errorf("survey %d: %w", id, err))
			}
			continue
		}
		if fields == nil {
			continue
		}
		fetched++
		for _, name := range fields.Keys() {
			v, _ := fields.Get(name)
			value, ok := v.(string)
			if !ok {
				continue
			}
			prev, exists := merged.Get(name)
			if !exists {
				merged.Set(name, value)
				continue
			}
			merged.Set(name, mergeFieldLists(prev.(string), value))
		}
	}

	if fetched == 0 {
		return nil, mserrors.NewCollaboratorError("registry", 0,
			fmt.Sprintf("no registry fields for surveys %v", s.surveyIDs), mserrors.ErrCollaboratorUnavailable)
	}
	return metatree.NewFragment(CategorySurvey, merged), nil
}

// mergeFieldLists combines two comma-separated value lists, keeping first
// occurrences only. Scalar fields that happen to match are collapsed to a
// single value by the same rule.
func mergeFieldLists(a, b string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(a+","+b, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return strings.Join(out, ", ")
}

var surveyIDPattern = regexp.MustCompile(`\d+`)

// minSurveyID filters out digit runs that are version numbers or state codes
// rather than survey identifiers.
const minSurveyID = 20

// SurveyIDsFromFilename extracts candidate survey identifiers from a dataset
// file name. Digit runs in the base name whose value exceeds minSurveyID are
// taken as IDs, deduplicated in order of appearance. Used as a hint when the
// attribute store carries no survey_id.
func SurveyIDsFromFilename(path string) []int {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	seen := make(map[int]struct{})
	var ids []int
	for _, m := range surveyIDPattern.FindAllString(base, -1) {
		id, err := strconv.Atoi(m)
		if err != nil || id <= minSurveyID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// FilenameHints carries dataset traits encoded in a conventional grid file
// name such as mNSW0409.nc: a leading type letter followed by a state code.
// Either field may be empty when the name does not follow the convention.
type FilenameHints struct {
	Datatype string
	State    string
}

var gridNamePattern = regexp.MustCompile(`^([a-z])([A-Za-z]+)`)

var datatypeCodes = map[string]string{
	"g": "GRAV",
	"m": "MAG",
	"r": "RAD",
}

var stateCodes = map[string]string{
	"V":  "VIC",
	"NS": "NSW",
	"A":  "ACT",
	"Q":  "QLD",
	"NT": "NT",
	"W":  "WA",
	"S":  "SA",
	"T":  "TAS",
}

// HintsFromFilename decodes the type letter and state code from a
// conventional grid file name. Unconventional names yield empty hints.
func HintsFromFilename(path string) FilenameHints {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	m := gridNamePattern.FindStringSubmatch(base)
	if m == nil {
		return FilenameHints{}
	}
	return FilenameHints{
		Datatype: datatypeCodes[m[1]],
		State:    decodeState(strings.ToUpper(m[2])),
	}
}

// decodeState tries the one-letter code first, then the two-letter code,
// and falls back to the raw tag.
func decodeState(tag string) string {
	if state, ok := stateCodes[tag[:1]]; ok {
		return state
	}
	if len(tag) >= 2 {
		if state, ok := stateCodes[tag[:2]]; ok {
			return state
		}
	}
	return tag
}

// CheckFilenameHints warns when the traits encoded in the dataset file name
// disagree with the registry's survey fields. The survey tree is the merged
// Survey fragment; STATE and DATATYPES are comma-separated lists there.
func CheckFilenameHints(hints FilenameHints, survey *metatree.Tree, sink *diag.Sink) {
	if survey == nil || sink == nil {
		return
	}
	if hints.State != "" && !fieldListContains(survey, "STATE", hints.State) {
		sink.Inconsistent("STATE", CategorySurvey,
			fmt.Sprintf("filename state %q not among registry states", hints.State), nil)
	}
	if hints.Datatype != "" && !fieldListContains(survey, "DATATYPES", hints.Datatype) {
		sink.Inconsistent("DATATYPES", CategorySurvey,
			fmt.Sprintf("filename datatype %q not among registry datatypes", hints.Datatype), nil)
	}
}

func fieldListContains(tree *metatree.Tree, field, want string) bool {
	v, ok := tree.Get(field)
	if !ok {
		return true // nothing to contradict
	}
	raw, ok := v.(string)
	if !ok {
		return true
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.EqualFold(strings.TrimSpace(part), want) {
			return true
		}
	}
	return false
}
