package reconcile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// Attribute names the identity fields live under in a dataset's store.
const (
	attrIdentifier = "uuid"
	attrSurveyID   = "survey_id"
	attrDOI        = "doi"
)

func newIdentifier() string {
	return uuid.NewString()
}

// ResolveIdentifier establishes the dataset's identity. Preference order:
// the attribute store, then the sidecar cache, then a freshly generated
// identifier. An identifier that did not come from the store is staged for
// write-back; the caller persists once after the run succeeds.
func (e *Engine) ResolveIdentifier(store sources.AttributeStore) string {
	if v, ok := store.Get(attrIdentifier); ok {
		if id, ok := metatree.String(v); ok && strings.TrimSpace(id) != "" {
			id = strings.TrimSpace(id)
			e.setComputed("UUID", id)
			return id
		}
	}

	if v, ok := e.root.Lookup(metatree.Path{sources.CategorySidecar, "identifier"}); ok {
		if id, ok := metatree.String(v); ok && strings.TrimSpace(id) != "" {
			id = strings.TrimSpace(id)
			store.Set(attrIdentifier, id)
			e.storeDirty = true
			e.setComputed("UUID", id)
			return id
		}
	}

	id := e.idgen()
	store.Set(attrIdentifier, id)
	e.storeDirty = true
	e.setComputed("UUID", id)
	return id
}

// ReconcileSurveyIDs cross-checks the survey identifiers between the
// dataset's store and the registry fragment. The comparison is
// set-equality: values are split on commas, trimmed, cast to integers and
// deduplicated, so formatting and ordering differences never count as
// conflicts. A genuine mismatch is recorded as a consistency warning and the
// store's value is kept; a store with no value adopts the registry's.
func (e *Engine) ReconcileSurveyIDs(store sources.AttributeStore) {
	regVal, ok := e.root.Lookup(metatree.Path{sources.CategorySurvey, "SURVEYID"})
	if !ok {
		return
	}
	regSet, ok := metatree.IntSet(regVal)
	if !ok || len(regSet) == 0 {
		e.sink.Coerce(attrSurveyID, fmt.Sprintf("registry survey ids %v are not integers", regVal), nil)
		return
	}

	storeVal, present := store.Get(attrSurveyID)
	if !present || !leafUsable(storeVal) {
		store.Set(attrSurveyID, metatree.Stringify(regVal))
		e.storeDirty = true
		return
	}

	storeSet, ok := metatree.IntSet(storeVal)
	if !ok || len(storeSet) == 0 {
		e.sink.Coerce(attrSurveyID, fmt.Sprintf("stored survey ids %v are not integers, adopting registry value", storeVal), nil)
		store.Set(attrSurveyID, metatree.Stringify(regVal))
		e.storeDirty = true
		return
	}

	if !intSetsEqual(storeSet, regSet) {
		e.sink.Inconsistent(attrSurveyID, "registry",
			fmt.Sprintf("stored survey ids %v disagree with registry %v, keeping stored value",
				metatree.Stringify(storeVal), metatree.Stringify(regVal)), nil)
	}
}

func leafUsable(v any) bool {
	s, ok := metatree.String(v)
	if ok {
		return strings.TrimSpace(s) != ""
	}
	return v != nil
}

func intSetsEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
