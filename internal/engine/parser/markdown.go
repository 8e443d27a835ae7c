package parser

import (
	"regexp"
	"strings"
)

var (
	// Images first so plain link extraction can skip the leading "!".
	imageRe   = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]*)(?:\s+"[^"]*")?\)`)
	linkRe    = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)(?:\s+"[^"]*")?\)`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	fenceRe   = regexp.MustCompile("^\\s*(```|~~~)")

	slugStripRe    = regexp.MustCompile(`[^\w\- ]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)

	externalSchemeRe = regexp.MustCompile(`(?i)^(https?:|mailto:|ftp:|tel:|data:|//)`)
)

// Slugify converts heading text to a GitHub-style anchor: lowercase,
// non-word characters stripped, spaces to hyphens, runs collapsed.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsExternalTarget reports whether a link target leaves the project
// (scheme-qualified or protocol-relative). External reachability is a
// peer consumer's job, not this package's.
func IsExternalTarget(target string) bool {
	return externalSchemeRe.MatchString(target)
}

// ParseDocument builds the normalized model for one markdown file.
// Headings inside fenced code blocks are ignored; links are kept even in
// fences since broken references in examples still mislead readers.
func ParseDocument(path string, content []byte) *Document {
	doc := &Document{
		Path:    path,
		RawText: string(content),
		slugs:   make(map[string]struct{}),
	}

	inFence := false
	for i, line := range strings.Split(doc.RawText, "\n") {
		lineNo := i + 1

		if fenceRe.MatchString(line) {
			inFence = !inFence
			continue
		}

		if !inFence {
			if m := headingRe.FindStringSubmatch(line); m != nil {
				heading := Heading{Level: len(m[1]), Text: m[2], Line: lineNo}
				doc.Headings = append(doc.Headings, heading)
				doc.slugs[Slugify(m[2])] = struct{}{}
				continue
			}
		}

		for _, m := range imageRe.FindAllStringSubmatch(line, -1) {
			doc.Images = append(doc.Images, Link{
				Text:       m[1],
				Target:     m[2],
				Line:       lineNo,
				IsInternal: !IsExternalTarget(m[2]),
			})
		}
		// Blank out image matches so plain link extraction cannot
		// re-match the [alt](src) tail of an image.
		plain := imageRe.ReplaceAllString(line, "")
		for _, m := range linkRe.FindAllStringSubmatch(plain, -1) {
			doc.Links = append(doc.Links, Link{
				Text:       m[1],
				Target:     m[2],
				Line:       lineNo,
				IsInternal: !IsExternalTarget(m[2]),
			})
		}
	}

	return doc
}
