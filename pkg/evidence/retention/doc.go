// Package retention prunes old scenario records.
//
// Two rules apply in order: records older than RetentionDays are deleted,
// then the oldest records beyond MaxRecords. With ArchiveDir set, the pruned
// records are exported to a JSON file first.
//
//	pruner := retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention))
//	deleted, err := pruner.Prune(ctx)
package retention
