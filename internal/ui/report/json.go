package report

import (
	"encoding/json"
	"time"

	"driftwatch/internal/core/ports"
	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
	"driftwatch/internal/engine/fingerprint"
	"driftwatch/internal/engine/health"
)

// Document is the stable machine-readable report shape.
type Document struct {
	Project     string              `json:"project"`
	RunID       string              `json:"runId"`
	RunNumber   int                 `json:"runNumber"`
	Timestamp   time.Time           `json:"timestamp"`
	DurationMS  int64               `json:"durationMs"`
	TotalFiles  int                 `json:"totalFiles"`
	DocFiles    int                 `json:"docFiles"`
	SourceFiles int                 `json:"sourceFiles"`
	Health      health.Report       `json:"health"`
	Delta       delta.Summary       `json:"delta"`
	Attribution *health.Attribution `json:"attribution,omitempty"`
	Issues      []IssueDocument     `json:"issues"`
	Persisted   bool                `json:"persisted"`
}

// IssueDocument is one issue with its stable fingerprint attached, so
// scripts can pipe it straight into the status verbs.
type IssueDocument struct {
	detect.Issue
	Fingerprint string `json:"fingerprint"`
}

// JSON renders the run as indented JSON. Issues keep detection order,
// which is already deterministic.
func JSON(result *ports.AnalysisResult) ([]byte, error) {
	issues := make([]IssueDocument, len(result.Issues))
	for i, issue := range result.Issues {
		issues[i] = IssueDocument{Issue: issue, Fingerprint: fingerprint.ForIssue(issue)}
	}

	doc := Document{
		Project:     result.ProjectKey,
		RunID:       result.RunID,
		RunNumber:   result.RunNumber,
		Timestamp:   result.Timestamp,
		DurationMS:  result.Duration.Milliseconds(),
		TotalFiles:  result.TotalFiles,
		DocFiles:    result.DocFiles,
		SourceFiles: result.SourceFiles,
		Health:      result.Health,
		Delta:       result.Delta,
		Attribution: result.Attribution,
		Issues:      issues,
		Persisted:   result.Persisted,
	}
	return json.MarshalIndent(doc, "", "  ")
}
