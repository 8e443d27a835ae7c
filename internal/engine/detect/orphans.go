package detect

import (
	"fmt"
	"path"
	"strings"

	"driftwatch/internal/engine/parser"
)

// OrphanDetector finds documentation files no other document links to.
// Canonical entry points (readme, index) are exempt: nothing is expected
// to link to them.
type OrphanDetector struct{}

func (d *OrphanDetector) Name() string { return "orphaned-file" }

func (d *OrphanDetector) Detect(corpus *parser.Corpus) []Issue {
	linked := make(map[string]struct{})
	for _, doc := range corpus.Documents {
		for _, link := range doc.Links {
			if !link.IsInternal || link.Target == "" {
				continue
			}
			targetPath, _ := SplitAnchor(link.Target)
			if targetPath == "" {
				continue
			}
			linked[ResolveTarget(doc.Path, targetPath)] = struct{}{}
		}
	}

	var issues []Issue
	for _, doc := range corpus.Documents {
		if _, ok := linked[doc.Path]; ok {
			continue
		}
		if isEntryPoint(doc.Path) {
			continue
		}
		issues = append(issues, Issue{
			Type:       TypeOrphanedFile,
			Severity:   SeverityLow,
			Confidence: 0.7,
			Message:    fmt.Sprintf("documentation file \"%s\" is not linked from any other document", doc.Path),
			Location:   Location{Path: doc.Path, Line: 1},
			Suggestion: "link it from an index document or remove it",
		})
	}
	return issues
}

func isEntryPoint(p string) bool {
	base := strings.ToLower(path.Base(p))
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base == "readme" || base == "index"
}
