package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	cerrors "driftwatch/internal/core/errors"
	"driftwatch/internal/shared/observability"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	return OpenWithBusyTimeout(path, 2000)
}

// OpenWithBusyTimeout opens the store with an explicit sqlite busy
// timeout in milliseconds.
func OpenWithBusyTimeout(path string, busyTimeoutMS int) (*Store, error) {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 2000
	}
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeoutMS)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// UpsertProject returns the project for key, creating it on first use.
func (s *Store) UpsertProject(ctx context.Context, key, root string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	if key == "" {
		key = "default"
	}

	var p Project
	err := s.withRetry("upsert project", func() error {
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO projects (id, key, root) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET root = excluded.root
`, uuid.NewString(), key, root); err != nil {
			return err
		}

		var createdRaw string
		if err := s.db.QueryRowContext(ctx,
			`SELECT id, key, root, created_at_utc FROM projects WHERE key = ?`, key,
		).Scan(&p.ID, &p.Key, &p.Root, &createdRaw); err != nil {
			return err
		}
		if ts, err := time.Parse("2006-01-02 15:04:05", createdRaw); err == nil {
			p.CreatedAt = ts.UTC()
		}
		return nil
	})
	return p, err
}

// SaveRun persists an immutable run and its fingerprinted issues in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, issues []RunIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	byType, err := json.Marshal(run.IssuesByType)
	if err != nil {
		return fmt.Errorf("encode issues_by_type: %w", err)
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, project_id, run_number, ts_utc, issue_count, issues_by_type, health_score, total_files, coverage)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			run.ID,
			run.ProjectID,
			run.RunNumber,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.IssueCount,
			string(byType),
			run.HealthScore,
			run.TotalFiles,
			run.Coverage,
		); err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				return cerrors.Wrap(err, cerrors.CodeConflict,
					fmt.Sprintf("run %d already recorded for project", run.RunNumber))
			}
			return err
		}

		for _, issue := range issues {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO run_issues (run_id, fingerprint, type, severity, path, line, message)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, fingerprint) DO NOTHING
`, run.ID, issue.Fingerprint, issue.Type, issue.Severity, issue.Path, issue.Line, issue.Message); err != nil {
				_ = tx.Rollback()
				return err
			}
		}

		return tx.Commit()
	})
}

// NextRunNumber returns the strictly increasing run number for a project.
func (s *Store) NextRunNumber(ctx context.Context, projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.withRetry("next run number", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(run_number), 0) + 1 FROM runs WHERE project_id = ?`, projectID,
		).Scan(&n)
	})
	return n, err
}

// LatestRuns returns up to n most recent runs, newest first.
func (s *Store) LatestRuns(ctx context.Context, projectID string, n int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, project_id, run_number, ts_utc, issue_count, issues_by_type, health_score, total_files, coverage
FROM runs WHERE project_id = ? ORDER BY run_number DESC LIMIT ?
`, projectID, n)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0, n)
	for rows.Next() {
		var (
			run       Run
			tsRaw     string
			byTypeRaw string
		)
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.RunNumber, &tsRaw, &run.IssueCount, &byTypeRaw, &run.HealthScore, &run.TotalFiles, &run.Coverage); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		if err := json.Unmarshal([]byte(byTypeRaw), &run.IssuesByType); err != nil {
			return nil, fmt.Errorf("decode issues_by_type: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run, or nil when none exists.
func (s *Store) LatestRun(ctx context.Context, projectID string) (*Run, error) {
	runs, err := s.LatestRuns(ctx, projectID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// RunIssues returns a run's issues ordered by path then line, the same
// ordering the detector set emits.
func (s *Store) RunIssues(ctx context.Context, runID string) ([]RunIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load run issues", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT fingerprint, type, severity, path, line, message
FROM run_issues WHERE run_id = ? ORDER BY path ASC, line ASC, fingerprint ASC
`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []RunIssue
	for rows.Next() {
		var issue RunIssue
		if err := rows.Scan(&issue.Fingerprint, &issue.Type, &issue.Severity, &issue.Path, &issue.Line, &issue.Message); err != nil {
			return nil, fmt.Errorf("scan run issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run issue rows: %w", err)
	}
	return issues, nil
}

// RecordSightings upserts the stored-issue row for every fingerprint
// observed this run. First sighting creates the row open; later
// sightings only touch last_seen_at, preserving first_seen_at and any
// externally set status, except that a resolved issue seen again is
// reopened.
func (s *Store) RecordSightings(ctx context.Context, projectID string, seenAt time.Time, fingerprints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := seenAt.UTC().Format(time.RFC3339Nano)
	return s.withRetry("record sightings", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, fp := range fingerprints {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO stored_issues (project_id, fingerprint, status, first_seen_at_utc, last_seen_at_utc)
VALUES (?, ?, 'open', ?, ?)
ON CONFLICT(project_id, fingerprint) DO UPDATE SET
  last_seen_at_utc = excluded.last_seen_at_utc,
  status = CASE WHEN stored_issues.status = 'resolved' THEN 'open' ELSE stored_issues.status END
`, projectID, fp, ts, ts); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// SetStatus mutates one stored issue's lifecycle state. Marking an issue
// resolved also latches ever_resolved, feeding reintroduction detection.
func (s *Store) SetStatus(ctx context.Context, projectID, fingerprint string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("set status", func() error {
		res, err := s.db.ExecContext(ctx, `
UPDATE stored_issues
SET status = ?, ever_resolved = CASE WHEN ? = 'resolved' THEN 1 ELSE ever_resolved END
WHERE project_id = ? AND fingerprint = ?
`, string(status), string(status), projectID, fingerprint)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return cerrors.AddContext(
				cerrors.New(cerrors.CodeNotFound, "no stored issue for fingerprint"),
				cerrors.CtxFingerprint, fingerprint)
		}
		return nil
	})
}

// Statuses returns the current status of every stored issue for a project.
func (s *Store) Statuses(ctx context.Context, projectID string) (map[string]Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load statuses", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT fingerprint, status FROM stored_issues WHERE project_id = ?`, projectID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[string]Status)
	for rows.Next() {
		var fp, st string
		if err := rows.Scan(&fp, &st); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		statuses[fp] = Status(st)
	}
	return statuses, rows.Err()
}

// EverResolved returns every fingerprint that was ever marked resolved
// for the project. Recomputed per call from the indexed column, never
// cached, so external status edits are always visible.
func (s *Store) EverResolved(ctx context.Context, projectID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load ever-resolved", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT fingerprint FROM stored_issues WHERE project_id = ? AND ever_resolved = 1`, projectID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan ever-resolved row: %w", err)
		}
		out[fp] = struct{}{}
	}
	return out, rows.Err()
}

// Lookup returns one stored issue, or nil when the fingerprint was never
// seen for the project.
func (s *Store) Lookup(ctx context.Context, projectID, fingerprint string) (*StoredIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		issue        StoredIssue
		firstRaw     string
		lastRaw      string
		everResolved int
	)
	err := s.withRetry("lookup stored issue", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT project_id, fingerprint, status, first_seen_at_utc, last_seen_at_utc, ever_resolved
FROM stored_issues WHERE project_id = ? AND fingerprint = ?
`, projectID, fingerprint).Scan(&issue.ProjectID, &issue.Fingerprint, (*string)(&issue.Status), &firstRaw, &lastRaw, &everResolved)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if ts, err := time.Parse(time.RFC3339Nano, firstRaw); err == nil {
		issue.FirstSeenAt = ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339Nano, lastRaw); err == nil {
		issue.LastSeenAt = ts.UTC()
	}
	issue.EverResolved = everResolved != 0
	return &issue, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		observability.StoreRetriesTotal.Inc()
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
