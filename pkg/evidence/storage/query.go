package storage

import (
	"strings"

	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/query"
)

// streamBuffer is the channel capacity of QueryStream.
const streamBuffer = 100

// sortSpec returns the sort column and direction of q, falling back to
// newest first.
func sortSpec(q *evidence.Query) (string, bool) {
	field := q.SortBy
	if !query.ValidSortFields[field] {
		field = query.DefaultSortField
	}
	desc := !strings.EqualFold(q.SortOrder, "asc")
	return field, desc
}

func effectiveLimit(q *evidence.Query) int {
	if q.Limit > 0 {
		return q.Limit
	}
	return query.DefaultLimit
}
