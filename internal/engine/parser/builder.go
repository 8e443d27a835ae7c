package parser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driftwatch/internal/shared/observability"
)

// DefaultWorkers bounds the parse fan-out. Parsing is I/O dominated, so
// concurrency is capped to keep file handles and memory in check.
const DefaultWorkers = 64

// Input is one enumerated file. Read is called at most once, from a
// single worker goroutine.
type Input struct {
	Path string
	Read func() ([]byte, error)
}

// BuildCorpus reads and parses every parseable input with bounded
// concurrency and returns the assembled content model. Unreadable files
// are skipped and logged; they stay in the path set so links to them
// still resolve. Output ordering is the input ordering regardless of
// worker interleaving.
func BuildCorpus(ctx context.Context, inputs []Input, workers int) *Corpus {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	allPaths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		allPaths = append(allPaths, in.Path)
	}
	corpus := NewCorpus(allPaths)

	type slot struct {
		doc *Document
		src *SourceFile
	}
	slots := make([]slot, len(inputs))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, in := range inputs {
		if !IsDocumentPath(in.Path) && !IsSupportedSource(in.Path) {
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return corpus
		}
		wg.Add(1)
		go func(i int, in Input) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			content, err := in.Read()
			if err != nil {
				slog.Warn("skipping unreadable file", "path", in.Path, "error", err)
				return
			}
			if IsDocumentPath(in.Path) {
				slots[i].doc = ParseDocument(in.Path, content)
				observability.ParseDuration.WithLabelValues("markdown").Observe(time.Since(start).Seconds())
			} else {
				slots[i].src = ParseSource(in.Path, content)
				observability.ParseDuration.WithLabelValues(LanguageForPath(in.Path)).Observe(time.Since(start).Seconds())
			}
		}(i, in)
	}
	wg.Wait()

	for _, s := range slots {
		if s.doc != nil {
			corpus.AddDocument(s.doc)
		}
		if s.src != nil {
			corpus.AddSource(s.src)
		}
	}
	return corpus
}
