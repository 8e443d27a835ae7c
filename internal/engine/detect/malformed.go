package detect

import (
	"fmt"

	"driftwatch/internal/engine/parser"
)

// MalformedLinkDetector flags links with an empty target or empty text.
// An empty target is a dead click; empty text is an accessibility smell.
type MalformedLinkDetector struct{}

func (d *MalformedLinkDetector) Name() string { return "malformed-link" }

func (d *MalformedLinkDetector) Detect(corpus *parser.Corpus) []Issue {
	var issues []Issue
	for _, doc := range corpus.Documents {
		for _, link := range doc.Links {
			if link.Target == "" {
				issues = append(issues, Issue{
					Type:       TypeMalformedLink,
					Severity:   SeverityHigh,
					Confidence: 1.0,
					Message:    fmt.Sprintf("link '%s' has an empty target", link.Text),
					Location:   Location{Path: doc.Path, Line: link.Line},
				})
				continue
			}
			if link.Text == "" {
				issues = append(issues, Issue{
					Type:       TypeMalformedLink,
					Severity:   SeverityLow,
					Confidence: 1.0,
					Message:    fmt.Sprintf("link to \"%s\" has no link text", link.Target),
					Location:   Location{Path: doc.Path, Line: link.Line},
				})
			}
		}
	}
	return issues
}
