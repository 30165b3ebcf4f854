package query

import (
	"fmt"
	"strings"

	"mercator-hq/polyglot/pkg/evidence"
)

const (
	// DefaultLimit is the number of records returned when Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the largest accepted Limit.
	MaxLimit = 10000

	// DefaultSortField orders records by completion time.
	DefaultSortField = "finished_at"
)

// ValidSortFields contains the columns records can be sorted by.
var ValidSortFields = map[string]bool{
	"finished_at":  true,
	"started_at":   true,
	"recorded_at":  true,
	"score":        true,
	"refine_count": true,
	"scenario_id":  true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// ValidStages contains the workflow stages a scenario can fail in.
var ValidStages = map[string]bool{
	"generating":  true,
	"evaluating":  true,
	"aggregating": true,
	"refining":    true,
	"accepting":   true,
}

// Validate returns a QueryError describing the first invalid parameter of q.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[strings.ToLower(q.SortOrder)] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start time must be before end time"))
	}

	if q.MinScore != nil && (*q.MinScore < 0 || *q.MinScore > 10) {
		return evidence.NewQueryError(q, fmt.Errorf("min score must be between 0 and 10"))
	}
	if q.MaxScore != nil && (*q.MaxScore < 0 || *q.MaxScore > 10) {
		return evidence.NewQueryError(q, fmt.Errorf("max score must be between 0 and 10"))
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		return evidence.NewQueryError(q, fmt.Errorf("min score must be <= max score"))
	}

	switch q.Outcome {
	case "", evidence.OutcomeAccepted, evidence.OutcomeFailed:
	default:
		return evidence.NewQueryError(q, fmt.Errorf("invalid outcome: %s (must be 'accepted' or 'failed')", q.Outcome))
	}

	if q.FailedStage != "" && !ValidStages[q.FailedStage] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid failed stage: %s", q.FailedStage))
	}

	return nil
}

// ApplyDefaults fills in the limit and sort of q.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = DefaultSortField
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
