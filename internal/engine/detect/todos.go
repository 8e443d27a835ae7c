package detect

import (
	"fmt"
	"regexp"
	"strings"

	"driftwatch/internal/engine/parser"
)

var todoRe = regexp.MustCompile(`\b(TODO|FIXME|XXX|HACK|NOTE|OPTIMIZE)\b[:\s]*(.*)`)

// TodoDetector line-scans documents for work markers left in prose.
type TodoDetector struct{}

func (d *TodoDetector) Name() string { return "todo-marker" }

func (d *TodoDetector) Detect(corpus *parser.Corpus) []Issue {
	var issues []Issue
	for _, doc := range corpus.Documents {
		for i, line := range strings.Split(doc.RawText, "\n") {
			m := todoRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			marker := m[1]
			severity := SeverityLow
			if marker == "FIXME" {
				severity = SeverityMedium
			}

			detail := strings.TrimSpace(m[2])
			if len(detail) > 80 {
				detail = detail[:80] + "..."
			}
			msg := fmt.Sprintf("%s marker", marker)
			if detail != "" {
				msg = fmt.Sprintf("%s marker: %s", marker, detail)
			}

			issues = append(issues, Issue{
				Type:       TypeTodoMarker,
				Severity:   severity,
				Confidence: 1.0,
				Message:    msg,
				Location:   Location{Path: doc.Path, Line: i + 1},
			})
		}
	}
	return issues
}
