package fingerprint

import (
	"testing"

	"driftwatch/internal/engine/detect"
)

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(detect.TypeBrokenLink, "docs/a.md", "link target \"docs/b.md\" does not exist")
	b := Compute(detect.TypeBrokenLink, "docs/a.md", "link target \"docs/b.md\" does not exist")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if len(a) != Length {
		t.Errorf("expected %d hex chars, got %d", Length, len(a))
	}
}

func TestCompute_StableAcrossDrift(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"line references", "TODO marker at line 12", "TODO marker at line 97"},
		{"column references", "malformed table at line 3 col 14", "malformed table at line 8 col 2"},
		{"embedded paths", `link target "docs/old.md" does not exist`, `link target "docs/new.md" does not exist`},
		{"count phrases", "referenced by 3 files", "referenced by 17 files"},
		{"whitespace and case", "Conflicting  Values here", "conflicting values here"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fa := Compute(detect.TypeTodoMarker, "README.md", c.a)
			fb := Compute(detect.TypeTodoMarker, "README.md", c.b)
			if fa != fb {
				t.Errorf("expected identical fingerprints for %q vs %q\n(normalized: %q vs %q)",
					c.a, c.b, Normalize(c.a), Normalize(c.b))
			}
		})
	}
}

func TestCompute_DifferentiatesSubstance(t *testing.T) {
	base := Compute(detect.TypeNumericalInconsistency, "docs/a.md", "conflicting values for 'timeout': 3s vs 5000ms")

	otherKeyword := Compute(detect.TypeNumericalInconsistency, "docs/a.md", "conflicting values for 'retries': 3 vs 5")
	if base == otherKeyword {
		t.Error("different keywords must not collide")
	}

	otherPath := Compute(detect.TypeNumericalInconsistency, "docs/b.md", "conflicting values for 'timeout': 3s vs 5000ms")
	if base == otherPath {
		t.Error("different issue paths must not collide")
	}

	otherType := Compute(detect.TypeTodoMarker, "docs/a.md", "conflicting values for 'timeout': 3s vs 5000ms")
	if base == otherType {
		t.Error("different types must not collide")
	}
}

func TestNormalize_AnchorsAreSubstance(t *testing.T) {
	a := Normalize("anchor '#setup' not found in \"docs/guide.md\"")
	b := Normalize("anchor '#usage' not found in \"docs/guide.md\"")
	if a == b {
		t.Error("anchor names are substance and must survive normalization")
	}
}

func TestForIssue(t *testing.T) {
	issue := detect.Issue{
		Type:     detect.TypeBrokenLink,
		Message:  "link target \"x.md\" does not exist",
		Location: detect.Location{Path: "README.md", Line: 40},
	}
	moved := issue
	moved.Location.Line = 7

	if ForIssue(issue) != ForIssue(moved) {
		t.Error("location line must not affect the fingerprint")
	}
}
