package history

import (
	"database/sql"
	"fmt"

	cerrors "driftwatch/internal/core/errors"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL UNIQUE,
  root TEXT NOT NULL DEFAULT '',
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL REFERENCES projects(id),
  run_number INTEGER NOT NULL,
  ts_utc TEXT NOT NULL,
  issue_count INTEGER NOT NULL,
  issues_by_type TEXT NOT NULL DEFAULT '{}',
  health_score INTEGER NOT NULL,
  total_files INTEGER NOT NULL DEFAULT 0,
  coverage REAL NOT NULL DEFAULT 0,
  UNIQUE (project_id, run_number)
);
CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_id, run_number);

CREATE TABLE IF NOT EXISTS run_issues (
  run_id TEXT NOT NULL REFERENCES runs(id),
  fingerprint TEXT NOT NULL,
  type TEXT NOT NULL,
  severity TEXT NOT NULL,
  path TEXT NOT NULL,
  line INTEGER NOT NULL DEFAULT 0,
  message TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_run_issues_fingerprint ON run_issues(fingerprint);

CREATE TABLE IF NOT EXISTS stored_issues (
  project_id TEXT NOT NULL REFERENCES projects(id),
  fingerprint TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  first_seen_at_utc TEXT NOT NULL,
  last_seen_at_utc TEXT NOT NULL,
  ever_resolved INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (project_id, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_stored_issues_status ON stored_issues(project_id, status);
CREATE INDEX IF NOT EXISTS idx_stored_issues_ever_resolved ON stored_issues(project_id, ever_resolved);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return cerrors.New(cerrors.CodeNotSupported,
			fmt.Sprintf("schema version %d is newer than supported version %d", current, SchemaVersion))
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
