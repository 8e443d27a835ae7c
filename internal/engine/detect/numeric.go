package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"driftwatch/internal/engine/parser"
)

// NumericDetector extracts (keyword, value, unit) claims from prose and
// flags keywords whose normalized values disagree across the corpus.
// "3s" and "5000ms" must not disagree; "3s" and "5s" must.
type NumericDetector struct{}

func (d *NumericDetector) Name() string { return "numerical-consistency" }

var (
	numTripleRe = regexp.MustCompile(`(?i)\b([a-z][a-z0-9_-]{2,})\s*(?:[:=]|\bis\b|\bof\b)\s*(\d+(?:\.\d+)?)\s*([a-z%]*)`)

	// Lines whose numbers are identities rather than claims.
	versionLineRe = regexp.MustCompile(`(?i)\bv?\d+\.\d+\.\d+\b|\bversion\b`)
	dateLineRe    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	portLineRe    = regexp.MustCompile(`(?i)\bports?\b|\blocalhost\b`)
	idLineRe      = regexp.MustCompile(`\b[0-9a-f]{12,}\b|\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-`)

	qualifierRe = regexp.MustCompile(`(?i)\b(min|max|minimum|maximum|dev|prod|production|development|staging|local|default|test|approx|roughly|up to|at least)\b`)

	fenceLineRe = regexp.MustCompile("^\\s*(```|~~~)")
)

// unitFactor maps a unit token to its base unit and multiplier.
var unitFactor = map[string]struct {
	base   string
	factor float64
}{
	"ms": {"ms", 1}, "millisecond": {"ms", 1}, "milliseconds": {"ms", 1},
	"s": {"ms", 1000}, "sec": {"ms", 1000}, "secs": {"ms", 1000},
	"second": {"ms", 1000}, "seconds": {"ms", 1000},
	"m": {"ms", 60000}, "min": {"ms", 60000}, "mins": {"ms", 60000},
	"minute": {"ms", 60000}, "minutes": {"ms", 60000},
	"h": {"ms", 3600000}, "hr": {"ms", 3600000}, "hrs": {"ms", 3600000},
	"hour": {"ms", 3600000}, "hours": {"ms", 3600000},
	"b": {"bytes", 1}, "byte": {"bytes", 1}, "bytes": {"bytes", 1},
	"kb": {"bytes", 1 << 10}, "mb": {"bytes", 1 << 20},
	"gb": {"bytes", 1 << 30}, "tb": {"bytes", 1 << 40},
	"%": {"%", 1},
	"":  {"count", 1},
}

type numClaim struct {
	path      string
	line      int
	display   string // raw value+unit as written
	valueKey  string // normalized value + base unit
	qualified bool
}

func (d *NumericDetector) Detect(corpus *parser.Corpus) []Issue {
	// keyword -> claims, insertion ordered for determinism
	groups := make(map[string][]numClaim)
	var keywordOrder []string

	for _, doc := range corpus.Documents {
		inFence := false
		for i, line := range strings.Split(doc.RawText, "\n") {
			if fenceLineRe.MatchString(line) {
				inFence = !inFence
				continue
			}
			if inFence || skipNumericLine(line) {
				continue
			}
			for _, m := range numTripleRe.FindAllStringSubmatch(line, -1) {
				keyword := normalizeKeyword(m[1])
				if keyword == "" {
					continue
				}
				value, unit := m[2], strings.ToLower(m[3])
				norm, ok := normalizeValue(value, unit)
				if !ok {
					continue
				}
				if _, exists := groups[keyword]; !exists {
					keywordOrder = append(keywordOrder, keyword)
				}
				groups[keyword] = append(groups[keyword], numClaim{
					path:      doc.Path,
					line:      i + 1,
					display:   value + unit,
					valueKey:  norm,
					qualified: qualifierRe.MatchString(line),
				})
			}
		}
	}

	var issues []Issue
	for _, keyword := range keywordOrder {
		claims := groups[keyword]

		distinct := make(map[string]struct{})
		var displays []string
		anyQualified := false
		for _, c := range claims {
			if _, seen := distinct[c.valueKey]; !seen {
				distinct[c.valueKey] = struct{}{}
				displays = append(displays, c.display)
			}
			if c.qualified {
				anyQualified = true
			}
		}
		if len(distinct) < 2 {
			continue
		}

		// Group-level dampening: one qualified line softens the whole
		// keyword group, even if other pairs are unqualified.
		severity := SeverityMedium
		if anyQualified {
			severity = SeverityLow
		}

		issues = append(issues, Issue{
			Type:       TypeNumericalInconsistency,
			Severity:   severity,
			Confidence: 0.75,
			Message:    fmt.Sprintf("conflicting values for '%s': %s", keyword, strings.Join(displays, " vs ")),
			Location:   Location{Path: claims[0].path, Line: claims[0].line},
			Context:    describeClaimSites(claims),
		})
	}
	return issues
}

func skipNumericLine(line string) bool {
	return versionLineRe.MatchString(line) ||
		dateLineRe.MatchString(line) ||
		portLineRe.MatchString(line) ||
		idLineRe.MatchString(line)
}

// normalizeKeyword lowercases, strips separators, and de-pluralizes so
// "Retry-Count", "retry_counts" and "retry count" compare equal.
func normalizeKeyword(kw string) string {
	kw = strings.ToLower(kw)
	kw = strings.NewReplacer("-", "", "_", "", " ", "").Replace(kw)
	if len(kw) > 3 && strings.HasSuffix(kw, "s") && !strings.HasSuffix(kw, "ss") {
		kw = kw[:len(kw)-1]
	}
	if len(kw) < 3 {
		return ""
	}
	return kw
}

// normalizeValue converts value+unit to a canonical comparison key:
// time to milliseconds, sizes to bytes, bare numbers to counts.
func normalizeValue(value, unit string) (string, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", false
	}
	uf, ok := unitFactor[unit]
	if !ok {
		// Unknown unit: compare within that unit only.
		return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit, true
	}
	return strconv.FormatFloat(v*uf.factor, 'f', -1, 64) + " " + uf.base, true
}

func describeClaimSites(claims []numClaim) string {
	parts := make([]string, 0, len(claims))
	for _, c := range claims {
		parts = append(parts, fmt.Sprintf("%s in \"%s\" line %d", c.display, c.path, c.line))
	}
	return strings.Join(parts, "; ")
}
