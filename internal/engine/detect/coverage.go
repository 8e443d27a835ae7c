package detect

import (
	"fmt"
	"regexp"
	"strings"

	"driftwatch/internal/engine/parser"
)

// CoverageAnalyzer cross-references public exports against documentation
// mentions, and flags doc prose that references code which no longer
// exists.
type CoverageAnalyzer struct{}

func (d *CoverageAnalyzer) Name() string { return "coverage" }

// docLocationRe matches documentation-shaped paths; a single mention in
// one of these counts as documented.
var docLocationRe = regexp.MustCompile(`(?i)(^|/)(readme|docs?|api|guide|tutorial|reference)`)

// commonKeywords are tokens that look like code references but are
// ordinary vocabulary in technical prose.
var commonKeywords = map[string]struct{}{
	"if": {}, "else": {}, "for": {}, "while": {}, "return": {}, "true": {},
	"false": {}, "null": {}, "nil": {}, "none": {}, "const": {}, "let": {},
	"var": {}, "function": {}, "func": {}, "class": {}, "def": {}, "import": {},
	"export": {}, "from": {}, "async": {}, "await": {}, "new": {}, "this": {},
	"self": {}, "type": {}, "interface": {}, "struct": {}, "enum": {},
	"string": {}, "number": {}, "int": {}, "bool": {}, "boolean": {}, "void": {},
	"error": {}, "err": {}, "main": {}, "test": {}, "get": {}, "set": {},
	"json": {}, "yaml": {}, "toml": {}, "http": {}, "https": {}, "api": {},
	"cli": {}, "url": {}, "uri": {}, "id": {}, "uuid": {}, "npm": {}, "pip": {},
}

func (d *CoverageAnalyzer) Detect(corpus *parser.Corpus) []Issue {
	issues, _, _ := analyzeCoverage(corpus)
	issues = append(issues, detectOrphanedDocRefs(corpus)...)
	return issues
}

// Ratio returns the documented fraction of public exports. The second
// return is false when the corpus has no public exports at all.
func Ratio(corpus *parser.Corpus) (float64, bool) {
	_, documented, total := analyzeCoverage(corpus)
	if total == 0 {
		return 0, false
	}
	return float64(documented) / float64(total), true
}

func analyzeCoverage(corpus *parser.Corpus) ([]Issue, int, int) {
	var issues []Issue
	documented, total := 0, 0

	for _, src := range corpus.Sources {
		for _, exp := range src.Exports {
			if len(exp.Name) < 3 || strings.HasPrefix(exp.Name, "_") {
				continue
			}
			total++
			if isDocumented(corpus, exp.Name) {
				documented++
				continue
			}

			severity := SeverityLow
			if exp.Kind == "function" || exp.Kind == "class" {
				severity = SeverityMedium
			}
			issues = append(issues, Issue{
				Type:       TypeUndocumentedExport,
				Severity:   severity,
				Confidence: 0.8,
				Message:    fmt.Sprintf("public %s '%s' is not documented", exp.Kind, exp.Name),
				Location:   Location{Path: src.Path, Line: exp.Line},
				Suggestion: fmt.Sprintf("mention '%s' in a README or docs page", exp.Name),
			})
		}
	}
	return issues, documented, total
}

// isDocumented applies the mention rules: one mention in a
// documentation-shaped path, or two mentions anywhere.
func isDocumented(corpus *parser.Corpus, name string) bool {
	quoted := []string{"`" + name + "`", `"` + name + `"`, "'" + name + "'"}
	callForm := name + "("
	bare := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)

	totalMentions := 0
	for _, doc := range corpus.Documents {
		mentions := 0
		for _, q := range quoted {
			mentions += strings.Count(doc.RawText, q)
		}
		mentions += strings.Count(doc.RawText, callForm)
		if mentions == 0 && bare.MatchString(doc.RawText) {
			mentions = 1
		}
		if mentions > 0 && docLocationRe.MatchString(doc.Path) {
			return true
		}
		totalMentions += mentions
		if totalMentions >= 2 {
			return true
		}
	}
	return false
}

// codeTokenRe captures backticked identifiers and call-form tokens in
// prose, e.g. `parseConfig` or validateInput().
var codeTokenRe = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_]*)(?:\\(\\))?`|\\b([A-Za-z_][A-Za-z0-9_]*)\\(\\)")

func detectOrphanedDocRefs(corpus *parser.Corpus) []Issue {
	known := make(map[string]struct{})
	for _, src := range corpus.Sources {
		for _, exp := range src.Exports {
			known[exp.Name] = struct{}{}
		}
	}

	type refKey struct {
		path  string
		line  int
		token string
	}
	seen := make(map[refKey]struct{})

	var issues []Issue
	for _, doc := range corpus.Documents {
		inFence := false
		for i, line := range strings.Split(doc.RawText, "\n") {
			if fenceLineRe.MatchString(line) {
				inFence = !inFence
				continue
			}
			// Example code inside fences is not prose; it routinely
			// calls helpers that are not part of the public surface.
			if inFence {
				continue
			}
			for _, m := range codeTokenRe.FindAllStringSubmatch(line, -1) {
				token := m[1]
				callForm := strings.Contains(m[0], "()")
				if token == "" {
					token = m[2]
				}
				if len(token) < 3 {
					continue
				}
				if _, kw := commonKeywords[strings.ToLower(token)]; kw {
					continue
				}
				// Call-form tokens are code-shaped by construction;
				// backticked words need identifier shape to count.
				if !callForm && !looksLikeCodeReference(token) {
					continue
				}
				if _, ok := known[token]; ok {
					continue
				}
				key := refKey{path: doc.Path, line: i + 1, token: token}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				issues = append(issues, Issue{
					Type:       TypeOrphanedDoc,
					Severity:   SeverityLow,
					Confidence: 0.6,
					Message:    fmt.Sprintf("documentation references '%s' but no such export exists", token),
					Location:   Location{Path: doc.Path, Line: i + 1},
				})
			}
		}
	}
	return issues
}

// looksLikeCodeReference keeps only identifier-shaped tokens: camelCase,
// snake_case, PascalCase, or anything that appeared in call form. Plain
// lowercase words inside backticks are usually emphasis, not code.
func looksLikeCodeReference(token string) bool {
	if strings.Contains(token, "_") {
		return true
	}
	hasLower, hasUpper := false, false
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		}
	}
	return hasLower && hasUpper
}
