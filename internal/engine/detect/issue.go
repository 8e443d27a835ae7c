package detect

// Severity buckets map directly onto health-score penalties.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Type identifies the detector family that produced an issue.
type Type string

const (
	TypeBrokenLink             Type = "broken-link"
	TypeMalformedLink          Type = "malformed-link"
	TypeBrokenImage            Type = "broken-image"
	TypeTodoMarker             Type = "todo-marker"
	TypeOrphanedFile           Type = "orphaned-file"
	TypeUndocumentedExport     Type = "undocumented-export"
	TypeOrphanedDoc            Type = "orphaned-doc"
	TypeNumericalInconsistency Type = "numerical-inconsistency"
)

// Location pins an issue to a file position. Col is 0 when unknown.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// Issue is one detected inconsistency. ID is assigned per run and has no
// cross-run meaning; cross-run identity is the fingerprint.
type Issue struct {
	ID         string   `json:"id"`
	Type       Type     `json:"type"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Message    string   `json:"message"`
	Location   Location `json:"location"`
	Context    string   `json:"context,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}
