package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ausgeophys/metasync/pkg/diag"
	"github.com/ausgeophys/metasync/pkg/metatree"
)

// KeywordPair is one vocabulary keyword with its code, iterable from a
// template's each-block.
type KeywordPair struct {
	Value string
	Code  string
}

var keywordListPattern = regexp.MustCompile(`^KEYWORD_(.+)_LIST$`)

var titleCaser = cases.Title(language.English)

// ExpandKeywordPairs zips every KEYWORD_<NAME>_LIST field with its matching
// KEYWORD_<NAME>_CODE field into a KEYWORD_<NAME> pair list. The two lists
// must be the same length; a mismatch records a warning and leaves the raw
// fields untouched so the template can still print them verbatim. Keyword
// values are title-cased for display.
func ExpandKeywordPairs(fields map[string]any, sink *diag.Sink) {
	names := make([]string, 0, len(fields))
	for key := range fields {
		names = append(names, key)
	}
	sort.Strings(names)

	for _, key := range names {
		m := keywordListPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		name := m[1]
		codeKey := "KEYWORD_" + name + "_CODE"

		values := metatree.StringList(fields[key])
		codes := metatree.StringList(fields[codeKey])
		if len(values) == 0 {
			continue
		}
		if len(values) != len(codes) {
			if sink != nil {
				sink.Inconsistent(key, codeKey,
					fmt.Sprintf("%d keywords but %d codes, skipping pair expansion", len(values), len(codes)), nil)
			}
			continue
		}

		pairs := make([]KeywordPair, len(values))
		for i := range values {
			pairs[i] = KeywordPair{Value: titleCaser.String(strings.ToLower(values[i])), Code: codes[i]}
		}
		fields["KEYWORD_"+name] = pairs
	}
}
