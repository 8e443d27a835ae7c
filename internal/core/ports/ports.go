package ports

import (
	"context"
	"time"

	"driftwatch/internal/data/history"
	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
	"driftwatch/internal/engine/health"
)

// FileEntry is one file discovered under the configured roots. Read is
// deferred so enumeration stays cheap for files that are never parsed.
type FileEntry struct {
	Path string
	Read func() ([]byte, error)
}

// FileSource enumerates the files of a project.
type FileSource interface {
	Enumerate(ctx context.Context) ([]FileEntry, error)
}

// HistoryStore is the persistence surface the analyzer depends on.
// *history.Store satisfies it; tests substitute in-memory fakes.
type HistoryStore interface {
	UpsertProject(ctx context.Context, key, root string) (history.Project, error)
	NextRunNumber(ctx context.Context, projectID string) (int, error)
	LatestRun(ctx context.Context, projectID string) (*history.Run, error)
	LatestRuns(ctx context.Context, projectID string, limit int) ([]history.Run, error)
	RunIssues(ctx context.Context, runID string) ([]history.RunIssue, error)
	SaveRun(ctx context.Context, run history.Run, issues []history.RunIssue) error
	RecordSightings(ctx context.Context, projectID string, seenAt time.Time, fingerprints []string) error
	SetStatus(ctx context.Context, projectID, fingerprint string, status history.Status) error
	Statuses(ctx context.Context, projectID string) (map[string]history.Status, error)
	EverResolved(ctx context.Context, projectID string) (map[string]struct{}, error)
}

// AnalysisResult is the full outcome of one analysis run.
type AnalysisResult struct {
	ProjectKey  string
	RunID       string
	RunNumber   int
	Timestamp   time.Time
	Duration    time.Duration
	TotalFiles  int
	DocFiles    int
	SourceFiles int
	Issues      []detect.Issue
	Delta       delta.Summary
	Health      health.Report
	// Attribution explains the score movement against the previous
	// run; nil on a first run.
	Attribution *health.Attribution
	// Persisted is false when history is disabled or unavailable and
	// the run was degraded to first-run semantics.
	Persisted bool
}

// AnalysisService runs one full analysis pass.
type AnalysisService interface {
	Analyze(ctx context.Context) (*AnalysisResult, error)
}
