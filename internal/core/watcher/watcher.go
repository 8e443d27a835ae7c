// Package watcher drives continuous mode: filesystem events are
// debounced and throttled into full rescans.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"driftwatch/internal/core/config"
	"driftwatch/internal/engine/parser"
	"driftwatch/internal/shared/observability"
	"driftwatch/internal/shared/util"
)

// Watcher recursively watches the configured roots and invokes the
// rescan callback after events settle. Directories created while
// watching are added to the watch set.
type Watcher struct {
	roots    []string
	baseDir  string
	debounce time.Duration
	limiter  *util.Limiter
	dirGlobs []glob.Glob

	fsw    *fsnotify.Watcher
	rescan func(ctx context.Context)
}

func New(baseDir string, cfg *config.Config, rescan func(ctx context.Context)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		roots:    cfg.Paths.Roots,
		baseDir:  baseDir,
		debounce: cfg.Watch.Debounce,
		limiter:  util.NewPerMinute(cfg.Watch.RescansPerMinute),
		fsw:      fsw,
		rescan:   rescan,
	}
	for _, p := range cfg.Exclude.Dirs {
		g, err := glob.Compile(p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.dirGlobs = append(w.dirGlobs, g)
	}

	for _, root := range w.roots {
		abs := root
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(baseDir, root)
		}
		if err := w.addRecursive(abs); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) excludedDir(name string) bool {
	for _, g := range w.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.excludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// relevant filters out events for files the analysis never reads.
func (w *Watcher) relevant(name string) bool {
	if parser.IsDocumentPath(name) || parser.IsSupportedSource(name) {
		return true
	}
	// Creations and deletions of directories reshape the tree.
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

// Run blocks until ctx is done, triggering rescans as events settle.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	var timer *time.Timer
	var pending <-chan time.Time

	fire := func() {
		pending = nil
		if !w.limiter.Allow() {
			observability.RescansThrottledTotal.Inc()
			slog.Debug("rescan throttled", "retry_in", w.limiter.Delay())
			// Re-arm so the burst still results in one rescan.
			timer = time.NewTimer(w.limiter.Delay() + w.debounce)
			pending = timer.C
			return
		}
		observability.RescansTotal.Inc()
		w.rescan(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.excludedDir(filepath.Base(event.Name)) {
						if err := w.addRecursive(event.Name); err != nil {
							slog.Warn("cannot watch new directory", "path", event.Name, "error", err)
						}
					}
				}
			}

			if !w.relevant(event.Name) && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			slog.Debug("filesystem event", "op", event.Op.String(), "path", event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			pending = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-pending:
			fire()
		}
	}
}
