package parser

import (
	"context"
	"fmt"
	"testing"
)

func memInput(path, content string) Input {
	return Input{Path: path, Read: func() ([]byte, error) { return []byte(content), nil }}
}

func TestBuildCorpus_OrderStableUnderConcurrency(t *testing.T) {
	inputs := make([]Input, 0, 40)
	for i := 0; i < 20; i++ {
		inputs = append(inputs, memInput(fmt.Sprintf("docs/d%02d.md", i), "# H\n"))
		inputs = append(inputs, memInput(fmt.Sprintf("src/s%02d.js", i), "export function f() {}\n"))
	}

	corpus := BuildCorpus(context.Background(), inputs, 8)

	if len(corpus.Documents) != 20 || len(corpus.Sources) != 20 {
		t.Fatalf("expected 20 docs and 20 sources, got %d/%d", len(corpus.Documents), len(corpus.Sources))
	}
	for i, doc := range corpus.Documents {
		want := fmt.Sprintf("docs/d%02d.md", i)
		if doc.Path != want {
			t.Fatalf("document order unstable: index %d is %s, want %s", i, doc.Path, want)
		}
	}
}

func TestBuildCorpus_SkipsUnreadableKeepsPath(t *testing.T) {
	inputs := []Input{
		memInput("README.md", "# Hi\n"),
		{Path: "docs/broken.md", Read: func() ([]byte, error) { return nil, fmt.Errorf("permission denied") }},
		{Path: "LICENSE", Read: func() ([]byte, error) { return nil, fmt.Errorf("never called") }},
	}

	corpus := BuildCorpus(context.Background(), inputs, 4)

	if len(corpus.Documents) != 1 {
		t.Fatalf("expected 1 parsed document, got %d", len(corpus.Documents))
	}
	// Unparseable and unparsed files still count as link targets.
	if !corpus.HasPath("docs/broken.md") || !corpus.HasPath("LICENSE") {
		t.Error("expected skipped files to remain in the path set")
	}
}

func TestCorpus_PathLookups(t *testing.T) {
	corpus := NewCorpus([]string{"docs/API.md", "images/Arch.PNG"})

	if corpus.HasPath("docs/api.md") {
		t.Error("HasPath must be case sensitive")
	}
	if !corpus.HasPathFold("DOCS/api.MD") {
		t.Error("HasPathFold must be case insensitive")
	}
}
