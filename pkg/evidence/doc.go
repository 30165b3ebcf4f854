// Package evidence stores one queryable record per finished scenario.
//
// The merge layer writes the artifacts consumers read (audit log,
// translations, TSV dataset). Evidence is the operator's view of a run: every
// scenario that reaches Done or Failed is recorded with its outcome, its
// failing stage and error, per-evaluator scores, refinement rounds and the
// prompt revision that produced it. Abandoned scenarios are not recorded.
//
// # Layers
//
//  1. recorder: converts workflow results into records and writes them
//     asynchronously so a slow store never holds a scheduler worker
//  2. storage: SQLite (mattn/go-sqlite3, squirrel-built queries) and an
//     in-memory backend for tests
//  3. query: validation and defaults for Query
//  4. export: JSON and CSV writers used by `polyglot audit export`
//  5. retention: age and count based pruning with optional JSON archive
//
// # Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: "data_output/evidence.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil)
//	defer rec.Close()
//
//	sched := scheduler.New(machine, settings, cfg, scheduler.OnResult(func(r workflow.Result) {
//	    _ = rec.Record(ctx, settings, r)
//	}))
package evidence
