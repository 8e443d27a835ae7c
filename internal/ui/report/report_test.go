package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftwatch/internal/core/ports"
	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
	"driftwatch/internal/engine/health"
)

func sampleResult() *ports.AnalysisResult {
	summary := delta.NewFirstRun()
	return &ports.AnalysisResult{
		ProjectKey: "demo",
		RunNumber:  1,
		Timestamp:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		TotalFiles: 12,
		Issues: []detect.Issue{
			{
				ID:       "a",
				Type:     detect.TypeBrokenLink,
				Severity: detect.SeverityHigh,
				Message:  `link target "docs/missing.md" does not exist`,
				Location: detect.Location{Path: "docs/README.md", Line: 4},
			},
			{
				ID:         "b",
				Type:       detect.TypeTodoMarker,
				Severity:   detect.SeverityLow,
				Message:    "TODO marker: finish examples",
				Location:   detect.Location{Path: "docs/api.md", Line: 20},
				Suggestion: "file a tracking issue or remove the marker",
			},
		},
		Delta:  summary,
		Health: health.Report{Score: 86, SeverityPenalty: 12, DensityPenalty: 2},
	}
}

func TestMarkdown_FirstRun(t *testing.T) {
	out := Markdown(sampleResult())

	assert.Contains(t, out, "# Documentation Health: demo")
	assert.Contains(t, out, "**Score: 86/100**")
	assert.Contains(t, out, "First recorded run")
	assert.Contains(t, out, "docs/README.md:4")
	assert.Contains(t, out, "file a tracking issue")
	// High severity rows come before low ones.
	assert.Less(t, strings.Index(out, "broken-link"), strings.Index(out, "todo-marker"))
}

func TestMarkdown_DeltaAndAttribution(t *testing.T) {
	result := sampleResult()
	result.Delta = delta.Summary{
		Counts: map[delta.Classification]int{
			delta.ClassNew:        1,
			delta.ClassResolved:   2,
			delta.ClassPersisting: 1,
		},
		RegressionsBySeverity: map[detect.Severity]int{detect.SeverityHigh: 1},
		ResolvedBySeverity:    map[detect.Severity]int{detect.SeverityLow: 2},
	}
	result.Attribution = &health.Attribution{
		HealthDelta: -6, FromNewIssues: -10, FromResolvedIssues: 4, FromSeverityMix: 0,
	}

	out := Markdown(result)
	assert.Contains(t, out, "## Changes since last run")
	assert.Contains(t, out, "- new: 1")
	assert.Contains(t, out, "- resolved: 2")
	assert.Contains(t, out, "Score moved -6")
}

func TestJSON_RoundTrips(t *testing.T) {
	data, err := JSON(sampleResult())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "demo", doc.Project)
	assert.Equal(t, 86, doc.Health.Score)
	require.Len(t, doc.Issues, 2)
	assert.NotEmpty(t, doc.Issues[0].Fingerprint)
	assert.True(t, doc.Delta.FirstRun)
}

func TestJSON_EmptyIssuesStaysArray(t *testing.T) {
	result := sampleResult()
	result.Issues = nil

	data, err := JSON(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"issues": []`)
}
