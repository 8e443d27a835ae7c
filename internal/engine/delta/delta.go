// Package delta classifies the lifecycle of each issue fingerprint
// between the current run and the immediately preceding persisted run.
package delta

import (
	"driftwatch/internal/engine/detect"
)

type Classification string

const (
	ClassNew          Classification = "new"
	ClassPersisting   Classification = "persisting"
	ClassResolved     Classification = "resolved"
	ClassReintroduced Classification = "reintroduced"
	ClassIgnored      Classification = "ignored"
)

// Current is one fingerprinted issue from the run in progress.
type Current struct {
	Fingerprint string
	Type        detect.Type
	Severity    detect.Severity
}

// Previous is one stored issue from the preceding run.
type Previous struct {
	Fingerprint string
	Type        detect.Type
	Severity    detect.Severity
}

// IssueDelta is the classification of one fingerprint.
type IssueDelta struct {
	Fingerprint    string          `json:"fingerprint"`
	Classification Classification  `json:"classification"`
	Type           detect.Type     `json:"type"`
	Severity       detect.Severity `json:"severity"`
}

// Summary aggregates per-classification counts. Regressions (new plus
// reintroduced) and resolutions carry severity breakdowns because they
// drive regression signaling and score attribution.
type Summary struct {
	FirstRun bool `json:"firstRun"`

	Counts                map[Classification]int      `json:"counts"`
	RegressionsBySeverity map[detect.Severity]int     `json:"regressionsBySeverity"`
	ResolvedBySeverity    map[detect.Severity]int     `json:"resolvedBySeverity"`
	Issues                []IssueDelta                `json:"issues"`
}

// NewFirstRun is the short-circuit result when no previous run exists:
// nothing is classified.
func NewFirstRun() Summary {
	return Summary{
		FirstRun:              true,
		Counts:                map[Classification]int{},
		RegressionsBySeverity: map[detect.Severity]int{},
		ResolvedBySeverity:    map[detect.Severity]int{},
	}
}

// Classify assigns exactly one classification to every fingerprint in
// current ∪ previous. Priority, most specific first:
//
//  1. present now, currently ignored        -> ignored
//  2. present now, absent before, ever
//     marked resolved for this project      -> reintroduced
//  3. present now, absent before            -> new
//  4. present now and before                -> persisting
//  5. absent now, present before            -> resolved
//
// Duplicate fingerprints within the current run (same defect reported at
// several sites) classify once.
func Classify(current []Current, previous []Previous, ignored, everResolved map[string]struct{}) Summary {
	s := Summary{
		Counts:                map[Classification]int{},
		RegressionsBySeverity: map[detect.Severity]int{},
		ResolvedBySeverity:    map[detect.Severity]int{},
	}

	prevByFP := make(map[string]Previous, len(previous))
	for _, p := range previous {
		if _, dup := prevByFP[p.Fingerprint]; !dup {
			prevByFP[p.Fingerprint] = p
		}
	}

	seen := make(map[string]struct{}, len(current))
	for _, c := range current {
		if _, dup := seen[c.Fingerprint]; dup {
			continue
		}
		seen[c.Fingerprint] = struct{}{}

		_, wasPresent := prevByFP[c.Fingerprint]
		_, isIgnored := ignored[c.Fingerprint]
		_, wasResolved := everResolved[c.Fingerprint]

		var class Classification
		switch {
		case isIgnored:
			class = ClassIgnored
		case !wasPresent && wasResolved:
			class = ClassReintroduced
		case !wasPresent:
			class = ClassNew
		default:
			class = ClassPersisting
		}

		s.record(IssueDelta{
			Fingerprint:    c.Fingerprint,
			Classification: class,
			Type:           c.Type,
			Severity:       c.Severity,
		})
	}

	// Previous-run fingerprints no longer present are resolved. Keeping
	// the previous slice order keeps the summary reproducible.
	for _, p := range previous {
		if _, stillPresent := seen[p.Fingerprint]; stillPresent {
			continue
		}
		seen[p.Fingerprint] = struct{}{}
		s.record(IssueDelta{
			Fingerprint:    p.Fingerprint,
			Classification: ClassResolved,
			Type:           p.Type,
			Severity:       p.Severity,
		})
	}

	return s
}

func (s *Summary) record(d IssueDelta) {
	s.Issues = append(s.Issues, d)
	s.Counts[d.Classification]++
	switch d.Classification {
	case ClassNew, ClassReintroduced:
		s.RegressionsBySeverity[d.Severity]++
	case ClassResolved:
		s.ResolvedBySeverity[d.Severity]++
	}
}
