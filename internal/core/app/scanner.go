package app

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"driftwatch/internal/core/config"
	"driftwatch/internal/core/ports"
)

// Scanner enumerates files under the configured roots. Paths are
// reported slash-separated and relative to BaseDir so link targets
// resolve the same way on every platform.
type Scanner struct {
	BaseDir  string
	Roots    []string
	dirGlobs []glob.Glob
	fileGlob []glob.Glob
}

func NewScanner(baseDir string, cfg *config.Config) (*Scanner, error) {
	s := &Scanner{BaseDir: baseDir, Roots: cfg.Paths.Roots}
	for _, p := range cfg.Exclude.Dirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		s.dirGlobs = append(s.dirGlobs, g)
	}
	for _, p := range cfg.Exclude.Files {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		s.fileGlob = append(s.fileGlob, g)
	}
	return s, nil
}

func (s *Scanner) excludedDir(name string) bool {
	for _, g := range s.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedFile(rel string) bool {
	base := filepath.Base(rel)
	for _, g := range s.fileGlob {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (s *Scanner) Enumerate(ctx context.Context) ([]ports.FileEntry, error) {
	seen := make(map[string]struct{})
	var entries []ports.FileEntry

	for _, root := range s.Roots {
		abs := root
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.BaseDir, root)
		}

		err := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("skipping unreadable path", "path", p, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if d.IsDir() {
				if p != abs && s.excludedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(s.BaseDir, p)
			if err != nil || strings.HasPrefix(rel, "..") {
				// Roots outside BaseDir keep root-relative paths.
				inner, rerr := filepath.Rel(abs, p)
				if rerr != nil {
					return nil
				}
				rel = filepath.Join(filepath.Base(abs), inner)
			}
			rel = filepath.ToSlash(rel)

			if s.excludedFile(rel) {
				return nil
			}
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}

			full := p
			entries = append(entries, ports.FileEntry{
				Path: rel,
				Read: func() ([]byte, error) { return os.ReadFile(full) },
			})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("root does not exist", "root", abs)
				continue
			}
			return nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
