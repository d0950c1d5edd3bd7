// Package audit classifies override entries against the installed set and
// the computed defaults, and renders the grouped findings report.
package audit

import (
	"sort"

	"github.com/obentoo/portcheck/internal/overrides"
)

// Classification is the verdict for one override entry
type Classification int

const (
	// Live means the entry still changes effective behavior for an
	// installed version
	Live Classification = iota
	// Stale means no installed package matches the atom, or the
	// directive targets flags/keywords unknown to current metadata
	Stale
	// Redundant means applying the default would yield the same
	// effective USE/keyword outcome as the override
	Redundant
	// BadLine means the line could not be parsed
	BadLine
)

// String returns a human-readable classification
func (c Classification) String() string {
	switch c {
	case Live:
		return "live"
	case Stale:
		return "stale"
	case Redundant:
		return "redundant"
	case BadLine:
		return "parse-error"
	default:
		return "unknown"
	}
}

// Finding is the audit verdict for one override entry. Every entry yields
// exactly one Finding; nothing is silently dropped.
type Finding struct {
	Class  Classification
	File   string
	Line   int
	Atom   string // the atom token as written
	Kind   overrides.Kind
	Detail string
}

// Report contains the full audit outcome
type Report struct {
	Findings       []Finding
	LiveCount      int
	StaleCount     int
	RedundantCount int
	BadLineCount   int
}

// add appends a finding and updates the counters
func (r *Report) add(f Finding) {
	switch f.Class {
	case Live:
		r.LiveCount++
	case Stale:
		r.StaleCount++
	case Redundant:
		r.RedundantCount++
	case BadLine:
		r.BadLineCount++
	}
	r.Findings = append(r.Findings, f)
}

// Len returns the total number of findings
func (r *Report) Len() int {
	return len(r.Findings)
}

// Actionable counts the findings that call for operator attention:
// stale entries, redundant entries, and unparseable lines.
func (r *Report) Actionable() int {
	return r.StaleCount + r.RedundantCount + r.BadLineCount
}

// sortFindings orders the report by source file, then line number
func (r *Report) sortFindings() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].File != r.Findings[j].File {
			return r.Findings[i].File < r.Findings[j].File
		}
		return r.Findings[i].Line < r.Findings[j].Line
	})
}
