// Package cli implements the driftwatch command line front end.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"driftwatch/internal/core/app"
	"driftwatch/internal/core/config"
	cerrors "driftwatch/internal/core/errors"
	"driftwatch/internal/core/ports"
	"driftwatch/internal/core/watcher"
	"driftwatch/internal/data/history"
	"driftwatch/internal/engine/detect"
	"driftwatch/internal/shared/observability"
	"driftwatch/internal/ui/report"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type options struct {
	configPath  string
	root        string
	watch       bool
	historyN    int
	resolve     string
	ignore      string
	reopen      string
	reportMD    string
	reportJSON  string
	metricsAddr string
	verbose     bool
	version     bool
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("driftwatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "driftwatch.toml", "path to the config file")
	fs.BoolVar(&opts.watch, "watch", false, "keep running and rescan on file changes")
	fs.IntVar(&opts.historyN, "history", 0, "print the last N persisted runs and exit")
	fs.StringVar(&opts.resolve, "resolve", "", "mark the given fingerprint resolved and exit")
	fs.StringVar(&opts.ignore, "ignore", "", "mark the given fingerprint ignored and exit")
	fs.StringVar(&opts.reopen, "reopen", "", "reopen the given fingerprint and exit")
	fs.StringVar(&opts.reportMD, "report-md", "", "write a markdown report to this path")
	fs.StringVar(&opts.reportJSON, "report-json", "", "write a JSON report to this path")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: driftwatch [flags] [root]\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExit status is 1 when a run finds new or reintroduced high severity issues.\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("at most one root directory, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		opts.root = fs.Arg(0)
	}
	return opts, nil
}

// Run executes one invocation and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "driftwatch: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "driftwatch %s\n", Version)
		return 0
	}

	setupLogging(stderr, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, stdout, stderr); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		slog.Error("driftwatch failed", "error", err)
		return 1
	}
	return 0
}

// exitError carries a non-zero exit code without an error message,
// used for the regression signal.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	cfg, baseDir, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	var store *history.Store
	if cfg.DB.Enabled {
		dbPath := cfg.DB.Path
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(baseDir, dbPath)
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err == nil {
			store, err = history.OpenWithBusyTimeout(dbPath, cfg.DB.BusyTimeoutMS)
			if err != nil {
				slog.Warn("history disabled, store cannot be opened", "path", dbPath, "error", err)
				store = nil
			}
		} else {
			slog.Warn("history disabled, cannot create data directory", "error", err)
		}
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	if fp, status := statusVerb(opts); fp != "" {
		return setStatus(ctx, store, cfg, fp, status, stdout)
	}
	if opts.historyN > 0 {
		return printHistory(ctx, store, cfg, opts.historyN, stdout)
	}

	scanner, err := app.NewScanner(baseDir, cfg)
	if err != nil {
		return err
	}
	analyzer := app.NewAnalyzer(cfg.Project.Key, baseDir, scanner, asHistoryStore(store))
	analyzer.Workers = cfg.Analysis.Workers

	if opts.watch {
		return runWatch(ctx, opts, cfg, baseDir, analyzer, stdout)
	}

	result, err := analyzer.Analyze(ctx)
	if err != nil {
		return err
	}
	if err := emit(result, opts, cfg, stdout); err != nil {
		return err
	}
	if regressed(result) {
		return &exitError{code: 1}
	}
	return nil
}

// asHistoryStore keeps a nil *history.Store from becoming a non-nil
// interface value.
func asHistoryStore(store *history.Store) ports.HistoryStore {
	if store == nil {
		return nil
	}
	return store
}

func loadConfig(opts *options) (*config.Config, string, error) {
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	if opts.root != "" {
		baseDir, err = filepath.Abs(opts.root)
		if err != nil {
			return nil, "", err
		}
	}

	configPath := opts.configPath
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(baseDir, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return config.Default("."), baseDir, nil
		}
		return nil, "", err
	}
	return cfg, baseDir, nil
}

func setupLogging(stderr io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
}

func statusVerb(opts *options) (string, history.Status) {
	switch {
	case opts.resolve != "":
		return opts.resolve, history.StatusResolved
	case opts.ignore != "":
		return opts.ignore, history.StatusIgnored
	case opts.reopen != "":
		return opts.reopen, history.StatusOpen
	default:
		return "", ""
	}
}

func setStatus(ctx context.Context, store *history.Store, cfg *config.Config, fp string, status history.Status, stdout io.Writer) error {
	if store == nil {
		return fmt.Errorf("history store is required to change issue status")
	}
	project, err := store.UpsertProject(ctx, cfg.Project.Key, "")
	if err != nil {
		return err
	}
	if err := store.SetStatus(ctx, project.ID, fp, status); err != nil {
		if cerrors.IsCode(err, cerrors.CodeNotFound) {
			return fmt.Errorf("unknown fingerprint %q, run an analysis first", fp)
		}
		return err
	}
	fmt.Fprintf(stdout, "%s is now %s\n", fp, status)
	return nil
}

func printHistory(ctx context.Context, store *history.Store, cfg *config.Config, n int, stdout io.Writer) error {
	if store == nil {
		return fmt.Errorf("history store is required to print trends")
	}
	project, err := store.UpsertProject(ctx, cfg.Project.Key, "")
	if err != nil {
		return err
	}
	runs, err := store.LatestRuns(ctx, project.ID, n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no recorded runs")
		return nil
	}

	// LatestRuns returns newest first; trends read better oldest first.
	fmt.Fprintf(stdout, "%-5s %-20s %-7s %-7s %s\n", "run", "timestamp", "issues", "score", "delta")
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		deltaCol := ""
		if i < len(runs)-1 {
			deltaCol = fmt.Sprintf("%+d", r.HealthScore-runs[i+1].HealthScore)
		}
		fmt.Fprintf(stdout, "%-5d %-20s %-7d %-7d %s\n",
			r.RunNumber, r.Timestamp.Format("2006-01-02 15:04:05"), r.IssueCount, r.HealthScore, deltaCol)
	}
	return nil
}

func emit(result *ports.AnalysisResult, opts *options, cfg *config.Config, stdout io.Writer) error {
	fmt.Fprint(stdout, report.Markdown(result))

	mdPath := opts.reportMD
	if mdPath == "" {
		mdPath = cfg.Output.Markdown
	}
	if mdPath != "" {
		if err := os.WriteFile(mdPath, []byte(report.Markdown(result)), 0o644); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
	}

	jsonPath := opts.reportJSON
	if jsonPath == "" {
		jsonPath = cfg.Output.JSON
	}
	if jsonPath != "" {
		data, err := report.JSON(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	}
	return nil
}

func regressed(result *ports.AnalysisResult) bool {
	return result.Delta.RegressionsBySeverity[detect.SeverityHigh] > 0
}

func runWatch(ctx context.Context, opts *options, cfg *config.Config, baseDir string, analyzer *app.Analyzer, stdout io.Writer) error {
	metricsAddr := opts.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Observability.MetricsAddr
	}
	if metricsAddr != "" {
		srv := newObservabilityServer(metricsAddr)
		srv.Start()
		defer srv.Stop()
	}

	rescan := func(ctx context.Context) {
		result, err := analyzer.Analyze(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("rescan failed", "error", err)
			}
			return
		}
		if err := emit(result, opts, cfg, stdout); err != nil {
			slog.Error("cannot write report", "error", err)
		}
	}

	// One full run up front so watch mode always starts from a scored
	// baseline.
	rescan(ctx)

	w, err := watcher.New(baseDir, cfg, rescan)
	if err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", cfg.Paths.Roots, "debounce", cfg.Watch.Debounce)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
