package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/polyglot/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	low, high := 2.0, 9.0
	outOfRange := 11.0

	tests := []struct {
		name    string
		query   *evidence.Query
		wantErr string
	}{
		{
			name: "valid query with all filters",
			query: &evidence.Query{
				StartTime:   &past,
				EndTime:     &now,
				RunID:       "run-1",
				Language:    "Korean",
				Outcome:     evidence.OutcomeFailed,
				FailedStage: "evaluating",
				MinScore:    &low,
				MaxScore:    &high,
				Limit:       100,
				SortBy:      "score",
				SortOrder:   "ASC",
			},
		},
		{name: "empty query", query: &evidence.Query{}},
		{name: "negative limit", query: &evidence.Query{Limit: -1}, wantErr: "limit must be >= 0"},
		{name: "limit too large", query: &evidence.Query{Limit: MaxLimit + 1}, wantErr: "limit must be <="},
		{name: "negative offset", query: &evidence.Query{Offset: -5}, wantErr: "offset must be >= 0"},
		{name: "unknown sort field", query: &evidence.Query{SortBy: "request_time"}, wantErr: "invalid sort field"},
		{name: "unknown sort order", query: &evidence.Query{SortOrder: "up"}, wantErr: "invalid sort order"},
		{name: "inverted time range", query: &evidence.Query{StartTime: &now, EndTime: &past}, wantErr: "start time must be before end time"},
		{name: "inverted score range", query: &evidence.Query{MinScore: &high, MaxScore: &low}, wantErr: "min score must be <= max score"},
		{name: "score out of range", query: &evidence.Query{MaxScore: &outOfRange}, wantErr: "max score must be between 0 and 10"},
		{name: "unknown outcome", query: &evidence.Query{Outcome: "abandoned"}, wantErr: "invalid outcome"},
		{name: "terminal stage is not a failure stage", query: &evidence.Query{FailedStage: "done"}, wantErr: "invalid failed stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
			var qerr *evidence.QueryError
			if !errors.As(err, &qerr) {
				t.Errorf("Validate() error is %T, want *evidence.QueryError", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)

	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.SortBy != DefaultSortField {
		t.Errorf("SortBy = %q, want %q", q.SortBy, DefaultSortField)
	}
	if q.SortOrder != "desc" {
		t.Errorf("SortOrder = %q, want desc", q.SortOrder)
	}

	q = &evidence.Query{Limit: 5, SortBy: "score", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 5 || q.SortBy != "score" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults overwrote explicit values: %+v", q)
	}
}
