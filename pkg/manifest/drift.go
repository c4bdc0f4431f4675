package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ausgeophys/metasync/pkg/errors"
)

// DriftKind classifies one discrepancy between a stored snapshot and the
// current file set.
type DriftKind string

// Drift classifications.
const (
	// DriftIdentifier is a dataset identity change (reported once).
	DriftIdentifier DriftKind = "identifier"

	// DriftLocation is a dataset folder change (reported once).
	DriftLocation DriftKind = "location"

	// DriftMissing is a stored file with no current counterpart by name
	// or by unambiguous digest match.
	DriftMissing DriftKind = "missing"

	// DriftRenamed is a stored file whose content now lives under exactly
	// one other name.
	DriftRenamed DriftKind = "renamed"

	// DriftModified is a stored file whose content digest has changed.
	DriftModified DriftKind = "modified"
)

// Finding is one classified discrepancy.
type Finding struct {
	Kind      DriftKind
	File      string // stored file name; empty for identifier/location findings
	RenamedTo string // set for DriftRenamed
	Detail    string
}

// String renders the finding for reports and logs.
func (f Finding) String() string {
	switch f.Kind {
	case DriftRenamed:
		return fmt.Sprintf("file %s has been renamed to %s", f.File, f.RenamedTo)
	case DriftMissing:
		return fmt.Sprintf("file %s does not exist", f.File)
	case DriftModified:
		return fmt.Sprintf("digest for file %s has changed: %s", f.File, f.Detail)
	default:
		return f.Detail
	}
}

// DriftReport is the ordered sequence of classified discrepancies between
// a stored snapshot and a freshly computed digest map.
type DriftReport struct {
	Identifier string
	BasePath   string
	Findings   []Finding
}

// Pass reports whether verification succeeded: true iff no discrepancies.
func (r *DriftReport) Pass() bool {
	return len(r.Findings) == 0
}

// Summary renders all findings, one per line.
func (r *DriftReport) Summary() string {
	lines := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}

// DriftError is the verification failure carrying the full report. It is
// fatal to the verification operation but never mutates the stored
// snapshot.
type DriftError struct {
	Report *DriftReport
}

// Error implements the error interface.
func (e *DriftError) Error() string {
	return fmt.Sprintf("dataset %s failed integrity verification (%d findings):\n%s",
		e.Report.Identifier, len(e.Report.Findings), e.Report.Summary())
}

// Is implements errors.Is support.
func (e *DriftError) Is(target error) bool {
	return target == errors.ErrDriftDetected
}

// Verify recomputes the current digest map for basePath exactly as Capture
// would, loads the stored snapshot, and classifies every discrepancy. The
// report is returned in all cases; when it is non-empty the error is a
// *DriftError carrying it. Files present currently but absent from the
// snapshot are not reported: additions are not drift.
func Verify(ctx context.Context, basePath, identifier string, opts ...Option) (*DriftReport, error) {
	o := newOptions(opts)

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, errors.WrapIO("resolve", basePath, err)
	}

	store := NewStore()
	stored, err := store.Load(absPath)
	if err != nil {
		return nil, err
	}

	current, err := Capture(ctx, absPath, identifier,
		WithExclusions(o.exclusions),
		WithConcurrency(o.concurrency),
		WithDigester(o.digester))
	if err != nil {
		return nil, err
	}

	report := &DriftReport{Identifier: identifier, BasePath: absPath}

	if stored.Identifier != identifier {
		report.Findings = append(report.Findings, Finding{
			Kind:   DriftIdentifier,
			Detail: fmt.Sprintf("identifier changed from %s to %s", stored.Identifier, identifier),
		})
	}
	if stored.BasePath != absPath {
		report.Findings = append(report.Findings, Finding{
			Kind:   DriftLocation,
			Detail: fmt.Sprintf("dataset folder changed from %s to %s", stored.BasePath, absPath),
		})
	}

	report.Findings = append(report.Findings, classifyFiles(stored, current)...)

	if !report.Pass() {
		return report, &DriftError{Report: report}
	}
	return report, nil
}

// classifyFiles classifies per stored entry, in stored (sorted) order.
// A rename is reported only when the match is unambiguous in both
// directions: the stored digest belongs to exactly one stored entry and
// exactly one differently-named current file.
func classifyFiles(stored, current *Snapshot) []Finding {
	currentByName := make(map[string]string, len(current.Files))
	currentByDigest := make(map[string][]string, len(current.Files))
	for _, e := range current.Files {
		currentByName[e.File] = e.Digest
		currentByDigest[e.Digest] = append(currentByDigest[e.Digest], e.File)
	}
	storedDigestCount := make(map[string]int, len(stored.Files))
	for _, e := range stored.Files {
		storedDigestCount[e.Digest]++
	}

	var findings []Finding
	for _, e := range stored.Files {
		currentDigest, exists := currentByName[e.File]
		if exists && currentDigest == e.Digest {
			continue
		}

		var candidates []string
		for _, name := range currentByDigest[e.Digest] {
			if name != e.File {
				candidates = append(candidates, name)
			}
		}

		switch {
		case len(candidates) == 1 && storedDigestCount[e.Digest] == 1:
			findings = append(findings, Finding{
				Kind:      DriftRenamed,
				File:      e.File,
				RenamedTo: candidates[0],
			})
		case exists:
			findings = append(findings, Finding{
				Kind:   DriftModified,
				File:   e.File,
				Detail: fmt.Sprintf("%s -> %s", e.Digest, currentDigest),
			})
		default:
			findings = append(findings, Finding{
				Kind: DriftMissing,
				File: e.File,
			})
		}
	}
	return findings
}
