package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "driftwatch/internal/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertProject_Idempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertProject(ctx, "demo", "/srv/demo")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := store.UpsertProject(ctx, "demo", "/srv/demo2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same key must keep the same project id")
	assert.Equal(t, "/srv/demo2", second.Root)
}

func TestSaveRun_AndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)

	n, err := store.NextRunNumber(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	run := Run{
		ID:           uuid.NewString(),
		ProjectID:    project.ID,
		RunNumber:    n,
		Timestamp:    time.Now().UTC(),
		IssueCount:   2,
		IssuesByType: map[string]int{"broken-link": 1, "todo-marker": 1},
		HealthScore:  88,
		TotalFiles:   14,
		Coverage:     0.75,
	}
	issues := []RunIssue{
		{Fingerprint: "fp-a", Type: "broken-link", Severity: "high", Path: "docs/a.md", Line: 3},
		{Fingerprint: "fp-b", Type: "todo-marker", Severity: "low", Path: "docs/b.md", Line: 9},
	}
	require.NoError(t, store.SaveRun(ctx, run, issues))

	latest, err := store.LatestRun(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, 88, latest.HealthScore)
	assert.Equal(t, map[string]int{"broken-link": 1, "todo-marker": 1}, latest.IssuesByType)

	loaded, err := store.RunIssues(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "fp-a", loaded[0].Fingerprint)

	next, err := store.NextRunNumber(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next, "run numbers are strictly increasing")
}

func TestSaveRun_DuplicateRunNumberConflicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)

	run := Run{
		ID:           uuid.NewString(),
		ProjectID:    project.ID,
		RunNumber:    1,
		Timestamp:    time.Now().UTC(),
		IssuesByType: map[string]int{},
	}
	require.NoError(t, store.SaveRun(ctx, run, nil))

	run.ID = uuid.NewString()
	err = store.SaveRun(ctx, run, nil)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeConflict),
		"reusing a run number must surface as a conflict, got %v", err)
}

func TestEnsureSchema_NewerVersionRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open(driverName, "file:"+path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(db))
	_, err = db.Exec(`INSERT INTO schema_migrations(version) VALUES (99)`)
	require.NoError(t, err)

	err = EnsureSchema(db)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeNotSupported),
		"a future schema must be refused as unsupported, got %v", err)
}

func TestLatestRun_NoRuns(t *testing.T) {
	store := openTestStore(t)
	run, err := store.LatestRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRecordSightings_PreservesFirstSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordSightings(ctx, project.ID, t0, []string{"fp-a"}))

	t1 := t0.Add(24 * time.Hour)
	require.NoError(t, store.RecordSightings(ctx, project.ID, t1, []string{"fp-a"}))

	issue, err := store.Lookup(ctx, project.ID, "fp-a")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, StatusOpen, issue.Status)
	assert.Equal(t, t0, issue.FirstSeenAt, "first_seen_at must survive re-sighting")
	assert.Equal(t, t1, issue.LastSeenAt)
}

func TestSetStatus_LatchesEverResolved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)
	require.NoError(t, store.RecordSightings(ctx, project.ID, time.Now().UTC(), []string{"fp-a", "fp-b"}))

	require.NoError(t, store.SetStatus(ctx, project.ID, "fp-a", StatusResolved))
	require.NoError(t, store.SetStatus(ctx, project.ID, "fp-a", StatusOpen))

	ever, err := store.EverResolved(ctx, project.ID)
	require.NoError(t, err)
	_, ok := ever["fp-a"]
	assert.True(t, ok, "ever_resolved must survive a later status change")
	_, ok = ever["fp-b"]
	assert.False(t, ok)
}

func TestSetStatus_UnknownFingerprint(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)

	err = store.SetStatus(ctx, project.ID, "missing", StatusIgnored)
	assert.Error(t, err)
}

func TestRecordSightings_ReopensResolved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	project, err := store.UpsertProject(ctx, "demo", ".")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.RecordSightings(ctx, project.ID, now, []string{"fp-a"}))
	require.NoError(t, store.SetStatus(ctx, project.ID, "fp-a", StatusResolved))

	// The defect comes back: the row reopens, ever_resolved stays latched.
	require.NoError(t, store.RecordSightings(ctx, project.ID, now.Add(time.Hour), []string{"fp-a"}))

	issue, err := store.Lookup(ctx, project.ID, "fp-a")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, StatusOpen, issue.Status)
	assert.True(t, issue.EverResolved)

	// Ignored is sticky across sightings.
	require.NoError(t, store.SetStatus(ctx, project.ID, "fp-a", StatusIgnored))
	require.NoError(t, store.RecordSightings(ctx, project.ID, now.Add(2*time.Hour), []string{"fp-a"}))
	issue, err = store.Lookup(ctx, project.ID, "fp-a")
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, issue.Status)
}
