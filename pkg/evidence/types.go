package evidence

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Outcome is the terminal state of a recorded scenario.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFailed   Outcome = "failed"
)

// ScenarioRecord is the immutable record of one finished scenario.
// Each scenario that reaches a terminal stage produces exactly one record,
// accepted or failed. Abandoned scenarios are never recorded.
type ScenarioRecord struct {
	// Identity
	ID         string `json:"id"`          // Unique record ID (UUID)
	RunID      string `json:"run_id"`      // Batch run that produced the scenario
	ScenarioID int    `json:"scenario_id"` // Index of the hypothesis in the batch

	// Scenario content
	Language    string `json:"language"` // Embedded (second) language
	Hypothesis  string `json:"hypothesis"`
	Translation string `json:"translation,omitempty"`

	// Outcome
	Outcome      Outcome `json:"outcome"`
	FailedStage  string  `json:"failed_stage,omitempty"`
	Error        string  `json:"error,omitempty"`
	MergeOutcome string  `json:"merge_outcome,omitempty"` // inserted, updated or skipped

	// Scoring
	Score       float64            `json:"score"`
	Scores      map[string]float64 `json:"scores,omitempty"` // Per evaluator
	RefineCount int                `json:"refine_count"`
	Rounds      int                `json:"rounds"` // Evaluation rounds
	Evaluations json.RawMessage    `json:"evaluations,omitempty"`

	// Provenance
	PromptRevision  string `json:"prompt_revision,omitempty"`
	TranslationHash string `json:"translation_hash,omitempty"` // SHA-256 of the final translation

	// Timestamps
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Duration returns how long the scenario ran.
func (r *ScenarioRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Query defines filters for retrieving scenario records.
// All filters are optional and combined with AND.
type Query struct {
	// Time range on FinishedAt
	StartTime *time.Time
	EndTime   *time.Time

	RunID    string
	Language string
	Outcome  Outcome

	// FailedStage selects failures in one workflow stage.
	FailedStage string

	// Score thresholds
	MinScore *float64
	MaxScore *float64

	// Pagination
	Limit  int // Maximum number of records to return (0 = default)
	Offset int // Number of records to skip

	// Sorting
	SortBy    string // Field to sort by (finished_at, score, refine_count)
	SortOrder string // Sort order: "asc" or "desc"
}

// Storage defines the interface for scenario record backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record. Storing an existing ID is an error.
	Store(ctx context.Context, record *ScenarioRecord) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*ScenarioRecord, error)

	// QueryStream returns a channel of records for large result sets.
	// Both channels are closed when the query completes; errCh carries at
	// most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *ScenarioRecord, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how
	// many were removed. Used by retention.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes records in an interchange format.
type Exporter interface {
	Export(ctx context.Context, records []*ScenarioRecord, w io.Writer) error

	// ExportStream writes records from recordsCh until it is closed.
	ExportStream(ctx context.Context, recordsCh <-chan *ScenarioRecord, w io.Writer) error
}
