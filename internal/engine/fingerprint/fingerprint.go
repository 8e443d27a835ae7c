// Package fingerprint gives every issue a content-addressed identity
// that survives line drift, renamed paths inside messages, and changing
// counts, while still separating substantively different issues.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"driftwatch/internal/engine/detect"
)

// Length of the hex-encoded fingerprint. Truncated for readability;
// 64 bits keeps collisions out of practical range for one project.
const Length = 16

var (
	lineRefRe  = regexp.MustCompile(`(?i)\b(?:line|ln)\.?\s*#?\d+\b`)
	colRefRe   = regexp.MustCompile(`(?i)\b(?:col|column|position|pos)\.?\s*#?\d+\b`)
	quotedRe   = regexp.MustCompile("[\"'`]([^\"'`]+)[\"'`]")
	pathLikeRe = regexp.MustCompile(`^[\w./\\-]*[/\\.][\w./\\-]*$`)
	countRe    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s+(files?|links?|issues?|documents?|exports?|headings?|anchors?|times?|occurrences?|mentions?)\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Compute derives the fingerprint for an issue from its type, path, and
// normalized message. Line numbers deliberately do not participate.
func Compute(issueType detect.Type, path, message string) string {
	payload := string(issueType) + "::" + path + "::" + Normalize(message)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:Length]
}

// ForIssue is the convenience form over a detect.Issue.
func ForIssue(issue detect.Issue) string {
	return Compute(issue.Type, issue.Location.Path, issue.Message)
}

// Normalize collapses volatile message fragments to fixed placeholders:
// line/column references, quoted path-like substrings, and "N files"
// style count phrases. The result is whitespace-collapsed and lowercased.
func Normalize(message string) string {
	msg := lineRefRe.ReplaceAllString(message, "line N")
	msg = colRefRe.ReplaceAllString(msg, "col N")
	msg = quotedRe.ReplaceAllStringFunc(msg, func(m string) string {
		inner := m[1 : len(m)-1]
		if pathLikeRe.MatchString(inner) {
			return "PATH"
		}
		return m
	})
	msg = countRe.ReplaceAllString(msg, "N $1")
	msg = spaceRe.ReplaceAllString(msg, " ")
	return strings.ToLower(strings.TrimSpace(msg))
}
