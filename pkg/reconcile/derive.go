package reconcile

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ausgeophys/metasync/pkg/metatree"
	"github.com/ausgeophys/metasync/pkg/sources"
)

// dateLayouts is the accepted input date format priority order. Registry
// dates use the day-month-year form; attribute timestamps use ISO variants.
var dateLayouts = []string{
	"2-Jan-06",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// historyLayout parses the ctime-style timestamp prefixing the first entry
// of a dataset's processing history.
const historyLayout = "Mon Jan _2 15:04:05 2006"

var yearPattern = regexp.MustCompile(`^(\d{4})-`)

// Derive populates the Computed category from the merged tree. Every
// derivation that fails yields the explicit unknown sentinel and a warning
// rather than an error; drafting a record with gaps beats refusing to draft
// one at all.
func (e *Engine) Derive(datasetPath string) {
	if datasetPath != "" {
		e.setComputed("FILENAME", filepath.Base(datasetPath))
	}
	e.deriveExtents()
	e.deriveCellSize()
	e.deriveDates()
	e.deriveConversionDatetime()
}

// deriveExtents computes the bounding extents from the dataset's geospatial
// bounds attribute, a comma-separated list of "lon lat" vertex pairs,
// optionally wrapped in WKT POLYGON syntax.
func (e *Engine) deriveExtents() {
	v, ok := e.attribute("geospatial_bounds")
	if !ok {
		e.markUnknown("extents have no geospatial_bounds to derive from", "WLON", "SLAT", "ELON", "NLAT")
		return
	}

	lons, lats := parseVertices(metatree.Stringify(v))
	if len(lons) == 0 {
		e.sink.Coerce("geospatial_bounds", fmt.Sprintf("cannot parse vertices from %q", v), nil)
		e.markUnknown("extents degraded: unparsable geospatial_bounds", "WLON", "SLAT", "ELON", "NLAT")
		return
	}

	e.setComputed("WLON", minOf(lons))
	e.setComputed("SLAT", minOf(lats))
	e.setComputed("ELON", maxOf(lons))
	e.setComputed("NLAT", maxOf(lats))
}

// deriveCellSize computes the nominal cell sizes of gridded datasets.
// CELLSIZE_M is the mean pixel size in metres rounded to the nearest ten;
// CELLSIZE_DEG is the mean in degrees rounded to eight decimals. Point
// datasets have neither attribute and get no cell size fields.
func (e *Engine) deriveCellSize() {
	if v, ok := e.attribute("nominal_cell_metres"); ok {
		if px, ok := floatList(v); ok {
			e.setComputed("CELLSIZE_M", int(math.Round(mean(px)/10))*10)
		} else {
			e.sink.Coerce("nominal_cell_metres", fmt.Sprintf("cannot parse %q", v), nil)
			e.setComputed("CELLSIZE_M", sources.Unknown)
		}
	}
	if v, ok := e.attribute("nominal_cell_degrees"); ok {
		if px, ok := floatList(v); ok {
			e.setComputed("CELLSIZE_DEG", math.Round(mean(px)*1e8)/1e8)
		} else {
			e.sink.Coerce("nominal_cell_degrees", fmt.Sprintf("cannot parse %q", v), nil)
			e.setComputed("CELLSIZE_DEG", sources.Unknown)
		}
	}
}

// deriveDates computes the acquisition date range from the registry's
// per-survey date lists. A dataset spanning several surveys starts at the
// earliest start and ends at the latest end.
func (e *Engine) deriveDates() {
	start, okStart := e.surveyDate("STARTDATE", earliest)
	if okStart {
		e.setComputed("START_DATE", start.Format("2006-01-02"))
	} else {
		e.markUnknown("no parsable survey start dates", "START_DATE")
	}

	end, okEnd := e.surveyDate("ENDDATE", latest)
	if okEnd {
		iso := end.Format("2006-01-02")
		e.setComputed("END_DATE", iso)
		if m := yearPattern.FindStringSubmatch(iso); m != nil {
			e.setComputed("YEAR", m[1])
		}
		return
	}
	e.markUnknown("no parsable survey end dates", "END_DATE", "YEAR")
}

// deriveConversionDatetime extracts the timestamp of the dataset's original
// conversion. The first history entry is prefixed with a ctime timestamp up
// to a colon; when the history yields nothing the date_modified attribute
// is used instead.
func (e *Engine) deriveConversionDatetime() {
	if v, ok := e.attribute("history"); ok {
		if ts, ok := parseHistoryTimestamp(metatree.Stringify(v)); ok {
			e.setComputed("CONVERSION_DATETIME", ts.Format("2006-01-02T15:04:05"))
			return
		}
	}
	if v, ok := e.attribute("date_modified"); ok {
		if ts, ok := parseDate(metatree.Stringify(v)); ok {
			e.setComputed("CONVERSION_DATETIME", ts.Format("2006-01-02T15:04:05"))
			return
		}
	}
	e.markUnknown("no history or date_modified timestamp", "CONVERSION_DATETIME")
}

// surveyDate parses the named registry date list and reduces it with pick.
// Unparsable entries are skipped with a warning; ok is false when nothing
// parsed.
func (e *Engine) surveyDate(field string, pick func(time.Time, time.Time) time.Time) (time.Time, bool) {
	v, ok := e.root.Lookup(metatree.Path{sources.CategorySurvey, field})
	if !ok {
		return time.Time{}, false
	}

	var result time.Time
	found := false
	for _, part := range metatree.StringList(v) {
		ts, ok := parseDate(part)
		if !ok {
			e.sink.Coerce(field, fmt.Sprintf("cannot parse date %q", part), nil)
			continue
		}
		if !found {
			result, found = ts, true
			continue
		}
		result = pick(result, ts)
	}
	return result, found
}

func (e *Engine) attribute(name string) (any, bool) {
	v, ok := e.root.Lookup(metatree.Path{sources.CategoryAttributes, name})
	if !ok || !leafUsable(v) {
		return nil, false
	}
	return v, true
}

func (e *Engine) markUnknown(message string, fields ...string) {
	for _, f := range fields {
		e.setComputed(f, sources.Unknown)
	}
	e.sink.Absent(strings.Join(fields, ","), message)
}

// parseDate tries the accepted layouts in priority order.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseHistoryTimestamp finds the ctime prefix of a history entry. The
// timestamp itself contains colons, so candidates are tried at every colon
// boundary from the longest prefix down.
func parseHistoryTimestamp(history string) (time.Time, bool) {
	line := history
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] != ':' {
			continue
		}
		if ts, err := time.Parse(historyLayout, strings.TrimSpace(line[:i])); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseVertices splits a vertex list into longitude and latitude series.
func parseVertices(s string) (lons, lats []float64) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "(("); i >= 0 {
		s = s[i+2:]
	}
	s = strings.TrimRight(s, ") ")

	for _, pair := range strings.Split(s, ",") {
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			continue
		}
		lon, okLon := metatree.Float(fields[0])
		lat, okLat := metatree.Float(fields[1])
		if !okLon || !okLat {
			continue
		}
		lons = append(lons, lon)
		lats = append(lats, lat)
	}
	return lons, lats
}

func floatList(v any) ([]float64, bool) {
	if f, ok := metatree.Float(v); ok {
		return []float64{f}, true
	}
	parts := metatree.StringList(v)
	if len(parts) == 0 {
		return nil, false
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, ok := metatree.Float(p)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
