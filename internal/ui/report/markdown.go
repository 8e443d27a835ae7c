// Package report renders analysis results for humans and machines.
package report

import (
	"fmt"
	"sort"
	"strings"

	"driftwatch/internal/core/ports"
	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
)

var severityOrder = map[detect.Severity]int{
	detect.SeverityHigh:   0,
	detect.SeverityMedium: 1,
	detect.SeverityLow:    2,
}

// Markdown renders the run as a report suitable for commit comments or
// CI artifacts.
func Markdown(result *ports.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Documentation Health: %s\n\n", result.ProjectKey)
	fmt.Fprintf(&b, "Run %d at %s\n\n", result.RunNumber, result.Timestamp.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Score: %d/100**\n\n", result.Health.Score)

	fmt.Fprintf(&b, "| Component | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Severity penalty | -%d |\n", result.Health.SeverityPenalty)
	fmt.Fprintf(&b, "| Density penalty | -%d |\n", result.Health.DensityPenalty)
	if result.Health.HasCoverage {
		fmt.Fprintf(&b, "| Coverage adjustment | %+d (%.0f%% documented) |\n",
			result.Health.CoverageAdj, result.Health.Coverage*100)
	}
	fmt.Fprintf(&b, "| Files scanned | %d |\n\n", result.TotalFiles)

	writeDelta(&b, result)
	writeIssues(&b, result.Issues)

	return b.String()
}

func writeDelta(b *strings.Builder, result *ports.AnalysisResult) {
	if result.Delta.FirstRun {
		fmt.Fprintf(b, "First recorded run, no comparison available.\n\n")
		return
	}

	fmt.Fprintf(b, "## Changes since last run\n\n")
	for _, class := range []delta.Classification{
		delta.ClassNew, delta.ClassReintroduced, delta.ClassPersisting,
		delta.ClassResolved, delta.ClassIgnored,
	} {
		if n := result.Delta.Counts[class]; n > 0 {
			fmt.Fprintf(b, "- %s: %d\n", class, n)
		}
	}
	fmt.Fprintf(b, "\n")

	if attr := result.Attribution; attr != nil && attr.HealthDelta != 0 {
		fmt.Fprintf(b, "Score moved %+d: %+d from regressions, %+d from resolutions, %+d from other factors.\n\n",
			attr.HealthDelta, attr.FromNewIssues, attr.FromResolvedIssues, attr.FromSeverityMix)
	}
}

func writeIssues(b *strings.Builder, issues []detect.Issue) {
	if len(issues) == 0 {
		fmt.Fprintf(b, "No issues found.\n")
		return
	}

	sorted := make([]detect.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityOrder[sorted[i].Severity] < severityOrder[sorted[j].Severity]
	})

	fmt.Fprintf(b, "## Issues (%d)\n\n", len(sorted))
	fmt.Fprintf(b, "| Severity | Type | Location | Message |\n|---|---|---|---|\n")
	for _, issue := range sorted {
		loc := issue.Location.Path
		if issue.Location.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.Location.Path, issue.Location.Line)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			issue.Severity, issue.Type, loc, escapeCell(issue.Message))
	}
	fmt.Fprintf(b, "\n")

	for _, issue := range sorted {
		if issue.Suggestion != "" {
			fmt.Fprintf(b, "- `%s:%d`: %s\n", issue.Location.Path, issue.Location.Line, issue.Suggestion)
		}
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
