// Package app wires enumeration, parsing, detection, delta
// classification, scoring and persistence into one analysis pass.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"driftwatch/internal/core/ports"
	"driftwatch/internal/data/history"
	"driftwatch/internal/engine/delta"
	"driftwatch/internal/engine/detect"
	"driftwatch/internal/engine/fingerprint"
	"driftwatch/internal/engine/health"
	"driftwatch/internal/engine/parser"
	"driftwatch/internal/shared/observability"
)

// Analyzer runs complete analysis passes over one project. Store may be
// nil, in which case every run behaves like a first run and nothing is
// persisted.
type Analyzer struct {
	ProjectKey string
	Root       string
	Source     ports.FileSource
	Store      ports.HistoryStore
	Detectors  []detect.Detector
	Workers    int
	Now        func() time.Time
}

func NewAnalyzer(projectKey, root string, source ports.FileSource, store ports.HistoryStore) *Analyzer {
	return &Analyzer{
		ProjectKey: projectKey,
		Root:       root,
		Source:     source,
		Store:      store,
		Detectors:  detect.Default(),
		Now:        time.Now,
	}
}

func (a *Analyzer) Analyze(ctx context.Context) (*ports.AnalysisResult, error) {
	started := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "analyze",
		trace.WithAttributes(attribute.String("project", a.ProjectKey)))
	defer span.End()

	entries, err := phase(ctx, "scan", func(ctx context.Context) ([]ports.FileEntry, error) {
		return a.Source.Enumerate(ctx)
	})
	if err != nil {
		return nil, err
	}

	corpus, _ := phase(ctx, "parse", func(ctx context.Context) (*parser.Corpus, error) {
		inputs := make([]parser.Input, len(entries))
		for i, e := range entries {
			inputs[i] = parser.Input{Path: e.Path, Read: e.Read}
		}
		return parser.BuildCorpus(ctx, inputs, a.Workers), nil
	})

	issues, _ := phase(ctx, "detect", func(ctx context.Context) ([]detect.Issue, error) {
		issues, _ := detect.RunAll(ctx, a.Detectors, corpus)
		return issues, nil
	})
	for i := range issues {
		issues[i].ID = uuid.NewString()
	}

	coverage, hasCoverage := detect.Ratio(corpus)
	totalFiles := len(entries)

	result := &ports.AnalysisResult{
		ProjectKey:  a.ProjectKey,
		RunID:       uuid.NewString(),
		RunNumber:   1,
		Timestamp:   a.Now().UTC(),
		TotalFiles:  totalFiles,
		DocFiles:    len(corpus.Documents),
		SourceFiles: len(corpus.Sources),
		Issues:      issues,
		Delta:       delta.NewFirstRun(),
		Health:      health.Score(issues, totalFiles, coverage, hasCoverage),
	}
	span.SetAttributes(
		attribute.Int("issues", len(issues)),
		attribute.Int("health", result.Health.Score),
	)
	a.publishMetrics(result)

	if a.Store == nil {
		result.Duration = time.Since(started)
		return result, nil
	}
	if err := a.persist(ctx, result); err != nil {
		// History being down degrades the run, it does not fail it.
		slog.Warn("history store unavailable, treating run as first run",
			"project", a.ProjectKey, "error", err)
		result.Delta = delta.NewFirstRun()
		result.Attribution = nil
		result.RunNumber = 1
		result.Persisted = false
	}
	result.Duration = time.Since(started)
	return result, nil
}

// persist classifies the run against the previous one and writes both
// the immutable run record and the per-fingerprint lifecycle rows.
func (a *Analyzer) persist(ctx context.Context, result *ports.AnalysisResult) error {
	ctx, span := observability.Tracer.Start(ctx, "persist")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.PhaseDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds())
	}()

	project, err := a.Store.UpsertProject(ctx, a.ProjectKey, a.Root)
	if err != nil {
		return err
	}

	previous, err := a.Store.LatestRun(ctx, project.ID)
	if err != nil {
		return err
	}

	current := make([]delta.Current, len(result.Issues))
	fingerprints := make([]string, len(result.Issues))
	for i, issue := range result.Issues {
		fp := fingerprint.ForIssue(issue)
		fingerprints[i] = fp
		current[i] = delta.Current{Fingerprint: fp, Type: issue.Type, Severity: issue.Severity}
	}

	if previous != nil {
		prevIssues, err := a.Store.RunIssues(ctx, previous.ID)
		if err != nil {
			return err
		}
		statuses, err := a.Store.Statuses(ctx, project.ID)
		if err != nil {
			return err
		}
		everResolved, err := a.Store.EverResolved(ctx, project.ID)
		if err != nil {
			return err
		}

		ignored := make(map[string]struct{})
		for fp, status := range statuses {
			if status == history.StatusIgnored {
				ignored[fp] = struct{}{}
			}
		}

		prev := make([]delta.Previous, len(prevIssues))
		for i, p := range prevIssues {
			prev[i] = delta.Previous{
				Fingerprint: p.Fingerprint,
				Type:        detect.Type(p.Type),
				Severity:    detect.Severity(p.Severity),
			}
		}

		result.Delta = delta.Classify(current, prev, ignored, everResolved)
		attribution := health.Attribute(result.Health.Score, previous.HealthScore, result.Delta)
		result.Attribution = &attribution
	}

	runNumber, err := a.Store.NextRunNumber(ctx, project.ID)
	if err != nil {
		return err
	}
	result.RunNumber = runNumber

	run := history.Run{
		ID:           result.RunID,
		ProjectID:    project.ID,
		RunNumber:    runNumber,
		Timestamp:    result.Timestamp,
		IssueCount:   len(result.Issues),
		IssuesByType: countByType(result.Issues),
		HealthScore:  result.Health.Score,
		TotalFiles:   result.TotalFiles,
		Coverage:     result.Health.Coverage,
	}
	runIssues := make([]history.RunIssue, len(result.Issues))
	for i, issue := range result.Issues {
		runIssues[i] = history.RunIssue{
			Fingerprint: fingerprints[i],
			Type:        string(issue.Type),
			Severity:    string(issue.Severity),
			Path:        issue.Location.Path,
			Line:        issue.Location.Line,
			Message:     issue.Message,
		}
	}

	if err := a.Store.SaveRun(ctx, run, runIssues); err != nil {
		return err
	}
	if err := a.Store.RecordSightings(ctx, project.ID, result.Timestamp, fingerprints); err != nil {
		return err
	}
	result.Persisted = true
	return nil
}

func phase[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := observability.Tracer.Start(ctx, name)
	defer span.End()
	start := time.Now()
	out, err := fn(ctx)
	observability.PhaseDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return out, err
}

func (a *Analyzer) publishMetrics(result *ports.AnalysisResult) {
	observability.IssuesFound.Reset()
	for issueType, n := range countByType(result.Issues) {
		observability.IssuesFound.WithLabelValues(issueType).Set(float64(n))
	}
	observability.HealthScore.Set(float64(result.Health.Score))
}

func countByType(issues []detect.Issue) map[string]int {
	byType := make(map[string]int)
	for _, issue := range issues {
		byType[string(issue.Type)]++
	}
	return byType
}
