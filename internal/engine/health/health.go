// Package health reduces a run's issue set to a 0-100 score and
// decomposes score movement between runs into auditable contributions.
package health

import (
	"math"

	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
)

const (
	penaltyHigh   = 10
	penaltyMedium = 5
	penaltyLow    = 2

	maxDensityPenalty = 20
	densityThreshold  = 5 // issues per 10 files before density kicks in

	coverageBonus     = 5  // coverage >= 80%
	coveragePenalty   = 10 // coverage < 50%
	coverageGoodRatio = 0.8
	coveragePoorRatio = 0.5
)

// Penalty returns the score cost of one issue of the given severity.
func Penalty(s detect.Severity) int {
	switch s {
	case detect.SeverityHigh:
		return penaltyHigh
	case detect.SeverityMedium:
		return penaltyMedium
	default:
		return penaltyLow
	}
}

// Report is a scored run with its component terms, kept so reports can
// show where the points went.
type Report struct {
	Score           int     `json:"score"`
	SeverityPenalty int     `json:"severityPenalty"`
	DensityPenalty  int     `json:"densityPenalty"`
	CoverageAdj     int     `json:"coverageAdj"`
	Coverage        float64 `json:"coverage"`
	HasCoverage     bool    `json:"hasCoverage"`
}

// Score computes the deterministic health score for one run.
// hasCoverage is false when the corpus exposes no public exports, in
// which case coverage neither rewards nor punishes.
func Score(issues []detect.Issue, totalFiles int, coverage float64, hasCoverage bool) Report {
	r := Report{Coverage: coverage, HasCoverage: hasCoverage}

	for _, issue := range issues {
		r.SeverityPenalty += Penalty(issue.Severity)
	}

	if totalFiles > 0 {
		perTen := float64(len(issues)) / float64(totalFiles) * 10
		if perTen > densityThreshold {
			r.DensityPenalty = int(math.Min(maxDensityPenalty, (perTen-densityThreshold)*2))
		}
	}

	if hasCoverage {
		switch {
		case coverage >= coverageGoodRatio:
			r.CoverageAdj = +coverageBonus
		case coverage < coveragePoorRatio:
			r.CoverageAdj = -coveragePenalty
		}
	}

	r.Score = clamp(100-r.SeverityPenalty-r.DensityPenalty+r.CoverageAdj, 0, 100)
	return r
}

// Attribution decomposes a score change between consecutive runs. The
// three terms always sum exactly to HealthDelta: FromSeverityMix is
// defined as the remainder, absorbing density/coverage movement and
// clamping effects.
type Attribution struct {
	HealthDelta        int `json:"healthDelta"`
	FromNewIssues      int `json:"fromNewIssues"`
	FromResolvedIssues int `json:"fromResolvedIssues"`
	FromSeverityMix    int `json:"fromSeverityMix"`
}

// Attribute explains current−previous using the delta summary's
// regression and resolution severity breakdowns.
func Attribute(current, previous int, s delta.Summary) Attribution {
	a := Attribution{HealthDelta: current - previous}

	for severity, count := range s.RegressionsBySeverity {
		a.FromNewIssues -= Penalty(severity) * count
	}
	for severity, count := range s.ResolvedBySeverity {
		a.FromResolvedIssues += Penalty(severity) * count
	}
	a.FromSeverityMix = a.HealthDelta - a.FromNewIssues - a.FromResolvedIssues
	return a
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
