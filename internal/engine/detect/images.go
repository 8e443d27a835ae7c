package detect

import (
	"fmt"

	"driftwatch/internal/engine/parser"
)

// BrokenImageDetector resolves relative image references against the
// document directory. The existence check is case insensitive: images
// "work" on case-insensitive filesystems and then break in CI.
type BrokenImageDetector struct{}

func (d *BrokenImageDetector) Name() string { return "broken-image" }

func (d *BrokenImageDetector) Detect(corpus *parser.Corpus) []Issue {
	var issues []Issue
	for _, doc := range corpus.Documents {
		for _, img := range doc.Images {
			if !img.IsInternal || img.Target == "" {
				continue
			}
			targetPath, _ := SplitAnchor(img.Target)
			if targetPath == "" {
				continue
			}
			resolved := ResolveTarget(doc.Path, targetPath)
			if corpus.HasPathFold(resolved) {
				continue
			}
			issues = append(issues, Issue{
				Type:       TypeBrokenImage,
				Severity:   SeverityHigh,
				Confidence: 0.95,
				Message:    fmt.Sprintf("image \"%s\" does not exist", resolved),
				Location:   Location{Path: doc.Path, Line: img.Line},
				Context:    img.Text,
			})
		}
	}
	return issues
}
