package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	cerrors "driftwatch/internal/core/errors"
	"driftwatch/internal/engine/parser"
	"driftwatch/internal/shared/observability"
)

// Detector is one pure analysis pass over the content model. Detectors
// share no state and may run in any order; within a detector, output is
// ordered by file then line so runs are reproducible.
type Detector interface {
	Name() string
	Detect(corpus *parser.Corpus) []Issue
}

// Result tags one detector's outcome so a failure in one pass never
// discards the others' output.
type Result struct {
	Detector string
	Issues   []Issue
	Err      error
}

// Default returns the full detector set.
func Default() []Detector {
	return []Detector{
		&LinkValidator{},
		&MalformedLinkDetector{},
		&BrokenImageDetector{},
		&TodoDetector{},
		&OrphanDetector{},
		&CoverageAnalyzer{},
		&NumericDetector{},
	}
}

// RunAll fans out one goroutine per detector and fans results back in.
// A panicking detector is converted into an error result; the merged
// issue list from the healthy detectors is returned sorted by path,
// line, then type.
func RunAll(ctx context.Context, detectors []Detector, corpus *parser.Corpus) ([]Issue, []Result) {
	if err := ctx.Err(); err != nil {
		return nil, nil
	}
	results := make([]Result, len(detectors))

	var wg sync.WaitGroup
	for i, d := range detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					err := cerrors.AddContext(
						cerrors.New(cerrors.CodeInternal, fmt.Sprintf("detector panic: %v", r)),
						cerrors.CtxDetector, d.Name())
					results[i] = Result{Detector: d.Name(), Err: err}
				}
			}()
			results[i] = Result{Detector: d.Name(), Issues: d.Detect(corpus)}
		}(i, d)
	}
	wg.Wait()

	var merged []Issue
	for _, r := range results {
		if r.Err != nil {
			observability.DetectorFailures.WithLabelValues(r.Detector).Inc()
			slog.Warn("detector failed, keeping remaining results", "detector", r.Detector, "error", r.Err)
			continue
		}
		merged = append(merged, r.Issues...)
	}

	sort.SliceStable(merged, func(a, b int) bool {
		if merged[a].Location.Path != merged[b].Location.Path {
			return merged[a].Location.Path < merged[b].Location.Path
		}
		if merged[a].Location.Line != merged[b].Location.Line {
			return merged[a].Location.Line < merged[b].Location.Line
		}
		return merged[a].Type < merged[b].Type
	})

	return merged, results
}
