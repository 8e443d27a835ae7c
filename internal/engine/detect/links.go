package detect

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"driftwatch/internal/engine/parser"
)

// LinkValidator checks internal link targets against the enumerated path
// set and anchors against the target document's heading slugs.
type LinkValidator struct{}

func (d *LinkValidator) Name() string { return "link-validator" }

func (d *LinkValidator) Detect(corpus *parser.Corpus) []Issue {
	var issues []Issue
	for _, doc := range corpus.Documents {
		for _, link := range doc.Links {
			if !link.IsInternal || link.Target == "" {
				continue
			}
			issues = append(issues, d.checkLink(corpus, doc, link)...)
		}
	}
	return issues
}

func (d *LinkValidator) checkLink(corpus *parser.Corpus, doc *parser.Document, link parser.Link) []Issue {
	targetPath, anchor := SplitAnchor(link.Target)

	// Pure anchor: resolve against this document's own headings.
	if targetPath == "" {
		if anchor == "" || doc.HasSlug(anchor) {
			return nil
		}
		return []Issue{{
			Type:       TypeBrokenLink,
			Severity:   SeverityMedium,
			Confidence: 0.9,
			Message:    fmt.Sprintf("anchor '#%s' not found in this document", anchor),
			Location:   Location{Path: doc.Path, Line: link.Line},
			Suggestion: suggestAnchors(doc, anchor),
		}}
	}

	resolved := ResolveTarget(doc.Path, targetPath)
	if !corpus.HasPath(resolved) {
		return []Issue{{
			Type:       TypeBrokenLink,
			Severity:   SeverityHigh,
			Confidence: 0.95,
			Message:    fmt.Sprintf("link target \"%s\" does not exist", resolved),
			Location:   Location{Path: doc.Path, Line: link.Line},
			Context:    link.Text,
		}}
	}

	if anchor == "" {
		return nil
	}
	target := corpus.DocumentAt(resolved)
	if target == nil {
		// Anchor into a non-markdown file; nothing to validate against.
		return nil
	}
	if target.HasSlug(anchor) {
		return nil
	}
	return []Issue{{
		Type:       TypeBrokenLink,
		Severity:   SeverityMedium,
		Confidence: 0.9,
		Message:    fmt.Sprintf("anchor '#%s' not found in \"%s\"", anchor, resolved),
		Location:   Location{Path: doc.Path, Line: link.Line},
		Suggestion: suggestAnchors(target, anchor),
	}}
}

// SplitAnchor separates a link target into its path and anchor parts.
func SplitAnchor(target string) (string, string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// ResolveTarget resolves a relative link target against the directory of
// the linking document. A leading slash resolves from the project root.
func ResolveTarget(docPath, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	resolved := path.Join(path.Dir(docPath), target)
	// Links escaping the root (../../..) normalize to the bare name.
	for strings.HasPrefix(resolved, "../") {
		resolved = strings.TrimPrefix(resolved, "../")
	}
	return resolved
}

// suggestAnchors offers up to 5 candidate headings for a missed anchor,
// closest matches first.
func suggestAnchors(doc *parser.Document, missed string) string {
	slugs := make([]string, 0, len(doc.HeadingSlugs()))
	for s := range doc.HeadingSlugs() {
		slugs = append(slugs, s)
	}
	if len(slugs) == 0 {
		return ""
	}

	missed = strings.ToLower(missed)
	sort.Slice(slugs, func(i, j int) bool {
		ai, aj := anchorAffinity(slugs[i], missed), anchorAffinity(slugs[j], missed)
		if ai != aj {
			return ai > aj
		}
		return slugs[i] < slugs[j]
	})
	if len(slugs) > 5 {
		slugs = slugs[:5]
	}
	return "available anchors: #" + strings.Join(slugs, ", #")
}

// anchorAffinity scores a candidate slug against the missed anchor.
// Containment in either direction outranks any prefix overlap, and among
// containing slugs the closest length wins.
func anchorAffinity(slug, missed string) int {
	if missed == "" {
		return 0
	}
	if strings.Contains(slug, missed) || strings.Contains(missed, slug) {
		diff := len(slug) - len(missed)
		if diff < 0 {
			diff = -diff
		}
		return 1000 - diff
	}
	n := 0
	for n < len(slug) && n < len(missed) && slug[n] == missed[n] {
		n++
	}
	return n
}
