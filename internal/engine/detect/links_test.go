package detect

import (
	"strings"
	"testing"
)

func TestLinkValidator_MissingTarget(t *testing.T) {
	// Scenario: doc A links to a nonexistent doc B.
	corpus := buildCorpus(t, map[string]string{
		"docs/a.md": "See [the missing doc](b.md).\n",
	})

	issues := (&LinkValidator{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected exactly 1 issue, got %d: %+v", len(issues), issues)
	}
	got := issues[0]
	if got.Type != TypeBrokenLink || got.Severity != SeverityHigh {
		t.Errorf("expected broken-link/high, got %s/%s", got.Type, got.Severity)
	}
	if got.Location.Path != "docs/a.md" || got.Location.Line != 1 {
		t.Errorf("issue must be located in the linking document, got %+v", got.Location)
	}
}

func TestLinkValidator_RelativeResolution(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"docs/guide/setup.md": "Back to [overview](../overview.md) and [license](/LICENSE).\n",
		"docs/overview.md":    "# Overview\n",
		"LICENSE":             "",
	})

	if issues := (&LinkValidator{}).Detect(corpus); len(issues) != 0 {
		t.Errorf("expected clean resolution, got %+v", issues)
	}
}

func TestLinkValidator_AnchorInTargetDocument(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md": "See [setup](docs/guide.md#setup) and [bad](docs/guide.md#nope).\n",
		"docs/guide.md": `# Guide

## Setup

## Usage Notes
`,
	})

	issues := (&LinkValidator{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected 1 anchor issue, got %+v", issues)
	}
	got := issues[0]
	if got.Severity != SeverityMedium {
		t.Errorf("missing anchor into existing file is medium, got %s", got.Severity)
	}
	if !strings.Contains(got.Suggestion, "#setup") || !strings.Contains(got.Suggestion, "#usage-notes") {
		t.Errorf("expected candidate headings in suggestion, got %q", got.Suggestion)
	}
}

func TestLinkValidator_AnchorSuggestionsRankedBySimilarity(t *testing.T) {
	// Six headings so a purely alphabetical top-5 would drop the one
	// the author most likely meant.
	corpus := buildCorpus(t, map[string]string{
		"README.md": "See [usage](docs/guide.md#usage).\n",
		"docs/guide.md": `# Alpha

# Beta

# Delta

# Epsilon

# Gamma

# Usage Notes
`,
	})

	issues := (&LinkValidator{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected 1 anchor issue, got %+v", issues)
	}
	got := issues[0].Suggestion
	if !strings.HasPrefix(got, "available anchors: #usage-notes") {
		t.Errorf("expected the closest slug first, got %q", got)
	}
}

func TestLinkValidator_OwnDocumentAnchor(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md": "# Top\n\nJump to [top](#top) or [missing](#nowhere).\n",
	})

	issues := (&LinkValidator{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for the missing own-document anchor, got %+v", issues)
	}
	if issues[0].Severity != SeverityMedium {
		t.Errorf("expected medium, got %s", issues[0].Severity)
	}
}

func TestLinkValidator_ExternalLinksIgnored(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md": "[site](https://example.com) [mail](mailto:a@b.c)\n",
	})
	if issues := (&LinkValidator{}).Detect(corpus); len(issues) != 0 {
		t.Errorf("external links are out of scope, got %+v", issues)
	}
}

func TestLinkValidator_AnchorIntoNonMarkdownFile(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"README.md": "[impl](src/main.go#L10)\n",
		"src/main.go": "package main\n",
	})
	if issues := (&LinkValidator{}).Detect(corpus); len(issues) != 0 {
		t.Errorf("anchors into non-markdown files are not validated, got %+v", issues)
	}
}

func TestMalformedLinkDetector(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"a.md": "[click here]() then [](b.md)\n",
		"b.md": "# B\n",
	})

	issues := (&MalformedLinkDetector{}).Detect(corpus)

	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
	if issues[0].Severity != SeverityHigh {
		t.Errorf("empty target is high, got %s", issues[0].Severity)
	}
	if issues[1].Severity != SeverityLow {
		t.Errorf("empty text is low, got %s", issues[1].Severity)
	}
}

func TestBrokenImageDetector(t *testing.T) {
	corpus := buildCorpus(t, map[string]string{
		"docs/a.md":      "![ok](../images/Arch.png) ![gone](missing.png) ![ext](https://cdn.example.com/x.png)\n",
		"images/arch.png": "",
	})

	issues := (&BrokenImageDetector{}).Detect(corpus)

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue (case-insensitive hit, absolute URL skipped), got %+v", issues)
	}
	if issues[0].Type != TypeBrokenImage || issues[0].Severity != SeverityHigh {
		t.Errorf("expected broken-image/high, got %s/%s", issues[0].Type, issues[0].Severity)
	}
}
