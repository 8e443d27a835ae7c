package detect

import (
	"context"
	"reflect"
	"testing"

	"driftwatch/internal/engine/parser"
)

type panickingDetector struct{}

func (d *panickingDetector) Name() string { return "panicky" }
func (d *panickingDetector) Detect(*parser.Corpus) []Issue {
	panic("unexpected state")
}

type staticDetector struct {
	name   string
	issues []Issue
}

func (d *staticDetector) Name() string                  { return d.name }
func (d *staticDetector) Detect(*parser.Corpus) []Issue { return d.issues }

func buildCorpus(t *testing.T, files map[string]string) *parser.Corpus {
	t.Helper()
	inputs := make([]parser.Input, 0, len(files))
	// Deterministic input order for tests.
	for _, p := range sortedKeys(files) {
		content := files[p]
		inputs = append(inputs, parser.Input{Path: p, Read: func() ([]byte, error) { return []byte(content), nil }})
	}
	return parser.BuildCorpus(context.Background(), inputs, 4)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func TestRunAll_IsolatesPanickingDetector(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{"README.md": "# Hi\n"})

	healthy := &staticDetector{name: "healthy", issues: []Issue{{
		Type: TypeTodoMarker, Severity: SeverityLow, Message: "x",
		Location: Location{Path: "README.md", Line: 1},
	}}}

	merged, results := RunAll(context.Background(), []Detector{&panickingDetector{}, healthy}, corpus)

	if len(merged) != 1 {
		t.Fatalf("expected healthy detector output to survive, got %d issues", len(merged))
	}
	if results[0].Err == nil {
		t.Error("expected panicking detector to report an error result")
	}
	if results[1].Err != nil {
		t.Errorf("healthy detector must not be affected: %v", results[1].Err)
	}
}

func TestRunAll_OutputSortedAndDeterministic(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md": "# A\n\nTODO: first\n\n[dead](missing.md)\n",
		"docs/b.md": "NOTE: second\n",
	})

	first, _ := RunAll(context.Background(), Default(), corpus)
	second, _ := RunAll(context.Background(), Default(), corpus)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("detector set is not deterministic on identical input")
	}
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if prev.Location.Path > cur.Location.Path {
			t.Fatalf("merged output not sorted by path: %s after %s", cur.Location.Path, prev.Location.Path)
		}
		if prev.Location.Path == cur.Location.Path && prev.Location.Line > cur.Location.Line {
			t.Fatalf("merged output not sorted by line within %s", cur.Location.Path)
		}
	}
}
