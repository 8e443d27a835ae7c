package detect

import (
	"testing"
)

func TestTodoDetector(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"docs/plan.md": "TODO: write the deploy guide\nFIXME broken example below\nNothing here.\nNOTE consider renaming\n",
	})

	issues := (&TodoDetector{}).Detect(corpus)

	if len(issues) != 3 {
		t.Fatalf("expected 3 markers, got %+v", issues)
	}
	if issues[0].Severity != SeverityLow {
		t.Errorf("TODO is low, got %s", issues[0].Severity)
	}
	if issues[1].Severity != SeverityMedium {
		t.Errorf("FIXME is medium, got %s", issues[1].Severity)
	}
	if issues[0].Location.Line != 1 || issues[1].Location.Line != 2 || issues[2].Location.Line != 4 {
		t.Errorf("unexpected line numbers: %+v", issues)
	}
}

func TestTodoDetector_CaseSensitive(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"a.md": "todo: lowercase is prose, not a marker\n",
	})
	if issues := (&TodoDetector{}).Detect(corpus); len(issues) != 0 {
		t.Errorf("lowercase todo must not match: %+v", issues)
	}
}

func TestOrphanDetector(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md":      "[guide](docs/guide.md)\n",
		"docs/guide.md":  "# Guide\n",
		"docs/stray.md":  "# Nobody links here\n",
		"docs/index.md":  "# Also unlinked, but an entry point\n",
	})

	issues := (&OrphanDetector{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected 1 orphan, got %+v", issues)
	}
	if issues[0].Location.Path != "docs/stray.md" {
		t.Errorf("expected docs/stray.md flagged, got %s", issues[0].Location.Path)
	}
}
