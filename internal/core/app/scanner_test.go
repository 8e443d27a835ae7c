package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftwatch/internal/core/config"
	"driftwatch/internal/core/ports"
)

func paths(entries []ports.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestScanner_WalksAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/b.md", "b")
	writeFile(t, root, "docs/a.md", "a")
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "assets/logo.png", "binary")

	scanner, err := NewScanner(root, config.Default(root))
	require.NoError(t, err)

	entries, err := scanner.Enumerate(context.Background())
	require.NoError(t, err)

	// Unparsed files stay in the path set so links to them resolve.
	assert.Equal(t, []string{"assets/logo.png", "docs/a.md", "docs/b.md", "src/main.go"}, paths(entries))
}

func TestScanner_ExcludesDirsAndFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "a")
	writeFile(t, root, "node_modules/pkg/readme.md", "x")
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, "docs/draft.tmp.md", "x")

	cfg := config.Default(root)
	cfg.Exclude.Files = []string{"*.tmp.md"}

	scanner, err := NewScanner(root, cfg)
	require.NoError(t, err)

	entries, err := scanner.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md"}, paths(entries))
}

func TestScanner_ReadIsDeferred(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Hi\n")

	scanner, err := NewScanner(root, config.Default(root))
	require.NoError(t, err)

	entries, err := scanner.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := entries[0].Read()
	require.NoError(t, err)
	assert.Equal(t, "# Hi\n", string(content))

	// Deleting after enumeration surfaces as a read error, not a scan
	// error.
	require.NoError(t, os.Remove(filepath.Join(root, "README.md")))
	_, err = entries[0].Read()
	assert.Error(t, err)
}

func TestScanner_MissingRootIsSkipped(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.Paths.Roots = []string{"docs", "missing"}
	writeFile(t, root, "docs/a.md", "a")

	scanner, err := NewScanner(root, cfg)
	require.NoError(t, err)

	entries, err := scanner.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md"}, paths(entries))
}
