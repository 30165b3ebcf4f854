// Package query validates scenario record queries before they reach a
// storage backend.
//
//	q := &evidence.Query{
//	    RunID:   runID,
//	    Outcome: evidence.OutcomeFailed,
//	    SortBy:  "score",
//	}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	query.ApplyDefaults(q)
//	records, err := store.Query(ctx, q)
package query
