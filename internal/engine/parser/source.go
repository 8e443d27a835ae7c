package parser

import (
	"path"
	"regexp"
	"strings"
)

// Supported languages, keyed by extension. Extraction is line-oriented
// pattern matching, not parsing: the goal is a stable export inventory
// for coverage analysis, not semantic understanding.
var languageByExt = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
}

// LanguageForPath returns the language name for a source path, or "".
func LanguageForPath(p string) string {
	return languageByExt[strings.ToLower(path.Ext(p))]
}

// IsSupportedSource reports whether the path has a supported source extension.
func IsSupportedSource(p string) bool {
	return LanguageForPath(p) != ""
}

// IsDocumentPath reports whether the path is a markdown document.
func IsDocumentPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".md" || ext == ".markdown"
}

type exportPattern struct {
	re      *regexp.Regexp
	kind    string
	nameIdx int
	// defaultIdx, when >0, marks the submatch whose presence flags a
	// default export (javascript/typescript only).
	defaultIdx int
}

var jsPatterns = []exportPattern{
	{re: regexp.MustCompile(`^\s*export\s+(default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`), kind: "function", nameIdx: 2, defaultIdx: 1},
	{re: regexp.MustCompile(`^\s*export\s+(default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), kind: "class", nameIdx: 2, defaultIdx: 1},
	{re: regexp.MustCompile(`^\s*export\s+(?:const|let|var)\s+([A-Za-z_$][\w$]*)`), kind: "const", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*export\s+interface\s+([A-Za-z_$][\w$]*)`), kind: "interface", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*export\s+type\s+([A-Za-z_$][\w$]*)`), kind: "type", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*export\s+enum\s+([A-Za-z_$][\w$]*)`), kind: "type", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*(?:module\.)?exports\.([A-Za-z_$][\w$]*)\s*=`), kind: "const", nameIdx: 1},
}

var pyPatterns = []exportPattern{
	{re: regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`), kind: "function", nameIdx: 1},
	{re: regexp.MustCompile(`^class\s+([A-Za-z_]\w*)`), kind: "class", nameIdx: 1},
}

var goPatterns = []exportPattern{
	{re: regexp.MustCompile(`^func\s+([A-Z]\w*)\s*[\(\[]`), kind: "function", nameIdx: 1},
	{re: regexp.MustCompile(`^func\s+\([^)]+\)\s+([A-Z]\w*)\s*\(`), kind: "method", nameIdx: 1},
	{re: regexp.MustCompile(`^type\s+([A-Z]\w*)\s+interface\b`), kind: "interface", nameIdx: 1},
	{re: regexp.MustCompile(`^type\s+([A-Z]\w*)\b`), kind: "type", nameIdx: 1},
	{re: regexp.MustCompile(`^const\s+([A-Z]\w*)\b`), kind: "const", nameIdx: 1},
	{re: regexp.MustCompile(`^var\s+([A-Z]\w*)\b`), kind: "var", nameIdx: 1},
}

var rustPatterns = []exportPattern{
	{re: regexp.MustCompile(`^\s*pub\s+(?:async\s+)?fn\s+([A-Za-z_]\w*)`), kind: "function", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*pub\s+struct\s+([A-Za-z_]\w*)`), kind: "class", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*pub\s+enum\s+([A-Za-z_]\w*)`), kind: "type", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*pub\s+trait\s+([A-Za-z_]\w*)`), kind: "interface", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*pub\s+(?:const|static)\s+([A-Za-z_]\w*)`), kind: "const", nameIdx: 1},
}

var javaPatterns = []exportPattern{
	{re: regexp.MustCompile(`^\s*public\s+(?:final\s+|abstract\s+)?class\s+([A-Za-z_]\w*)`), kind: "class", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*public\s+interface\s+([A-Za-z_]\w*)`), kind: "interface", nameIdx: 1},
	{re: regexp.MustCompile(`^\s*public\s+enum\s+([A-Za-z_]\w*)`), kind: "type", nameIdx: 1},
}

var patternsByLanguage = map[string][]exportPattern{
	"javascript": jsPatterns,
	"typescript": jsPatterns,
	"python":     pyPatterns,
	"go":         goPatterns,
	"rust":       rustPatterns,
	"java":       javaPatterns,
}

// ParseSource extracts the ordered export list for one source file.
// Idempotent: the same bytes always produce the same list in the same
// order (top to bottom, first matching pattern per line wins).
func ParseSource(filePath string, content []byte) *SourceFile {
	lang := LanguageForPath(filePath)
	src := &SourceFile{Path: filePath, Language: lang}
	patterns, ok := patternsByLanguage[lang]
	if !ok {
		return src
	}

	seen := make(map[string]struct{})
	for i, line := range strings.Split(string(content), "\n") {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[p.nameIdx]
			if name == "" {
				continue
			}
			key := name + "\x00" + p.kind
			if _, dup := seen[key]; dup {
				break
			}
			seen[key] = struct{}{}
			src.Exports = append(src.Exports, Export{
				Name:      name,
				Kind:      p.kind,
				Line:      i + 1,
				IsDefault: p.defaultIdx > 0 && m[p.defaultIdx] != "",
			})
			break
		}
	}
	return src
}
