package history

import "time"

const SchemaVersion = 1

// Status is the externally mutable lifecycle state of a stored issue.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusIgnored  Status = "ignored"
)

// Project is one analyzed project, keyed by a stable user-chosen key.
type Project struct {
	ID        string
	Key       string
	Root      string
	CreatedAt time.Time
}

// Run is one immutable analysis run. RunNumber is strictly increasing
// per project.
type Run struct {
	ID           string
	ProjectID    string
	RunNumber    int
	Timestamp    time.Time
	IssueCount   int
	IssuesByType map[string]int
	HealthScore  int
	TotalFiles   int
	Coverage     float64
}

// RunIssue is one fingerprinted issue as observed in a specific run.
type RunIssue struct {
	Fingerprint string
	Type        string
	Severity    string
	Path        string
	Line        int
	Message     string
}

// StoredIssue binds a fingerprint to its cross-run lifecycle state.
// FirstSeenAt never changes after the first sighting; EverResolved is
// set when the status transitions to resolved and is never cleared.
type StoredIssue struct {
	ProjectID    string
	Fingerprint  string
	Status       Status
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
	EverResolved bool
}
