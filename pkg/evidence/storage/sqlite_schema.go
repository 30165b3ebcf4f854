package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the scenario record tables. Timestamps are stored in UTC so
// range filters compare correctly.
const Schema = `
CREATE TABLE IF NOT EXISTS scenario_records (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    scenario_id INTEGER NOT NULL,

    language TEXT NOT NULL,
    hypothesis TEXT NOT NULL,
    translation TEXT,

    outcome TEXT NOT NULL,
    failed_stage TEXT,
    error TEXT,
    merge_outcome TEXT,

    score REAL NOT NULL,
    scores TEXT,
    refine_count INTEGER NOT NULL,
    rounds INTEGER NOT NULL,
    evaluations TEXT,

    prompt_revision TEXT,
    translation_hash TEXT,

    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scenario_records_run_id ON scenario_records(run_id);
CREATE INDEX IF NOT EXISTS idx_scenario_records_finished_at ON scenario_records(finished_at);
CREATE INDEX IF NOT EXISTS idx_scenario_records_outcome ON scenario_records(outcome);
CREATE INDEX IF NOT EXISTS idx_scenario_records_language ON scenario_records(language);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const recordsTable = "scenario_records"

// recordColumns is the column order used by every insert and select.
var recordColumns = []string{
	"id", "run_id", "scenario_id",
	"language", "hypothesis", "translation",
	"outcome", "failed_stage", "error", "merge_outcome",
	"score", "scores", "refine_count", "rounds", "evaluations",
	"prompt_revision", "translation_hash",
	"started_at", "finished_at", "recorded_at",
}
