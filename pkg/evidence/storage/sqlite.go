package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/evidence"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// JournalMode is the SQLite journal mode.
	// Default: WAL
	JournalMode string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         config.DefaultEvidenceSQLitePath,
		MaxOpenConns: config.DefaultEvidenceSQLiteMaxOpenConns,
		MaxIdleConns: config.DefaultEvidenceSQLiteMaxIdleConns,
		JournalMode:  config.DefaultEvidenceSQLiteJournalMode,
		BusyTimeout:  config.DefaultEvidenceSQLiteBusyTimeout,
	}
}

// SQLiteConfigFrom converts the evidence.sqlite configuration section.
func SQLiteConfigFrom(cfg config.SQLiteConfig) *SQLiteConfig {
	c := DefaultSQLiteConfig()
	if cfg.Path != "" {
		c.Path = cfg.Path
	}
	if cfg.MaxOpenConns > 0 {
		c.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		c.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.JournalMode != "" {
		c.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		c.BusyTimeout = cfg.BusyTimeout
	}
	return c
}

// dsn returns the mattn/go-sqlite3 connection string. Pragmas passed in the
// DSN apply to every pooled connection.
func (c *SQLiteConfig) dsn() string {
	params := url.Values{}
	params.Set("_journal_mode", strings.ToUpper(c.JournalMode))
	params.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeout.Milliseconds()))
	params.Set("_foreign_keys", "1")
	return "file:" + c.Path + "?" + params.Encode()
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"journal_mode", cfg.JournalMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.ScenarioRecord) error {
	scores, err := json.Marshal(record.Scores)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}

	query, args, err := sq.Insert(recordsTable).
		Columns(recordColumns...).
		Values(
			record.ID, record.RunID, record.ScenarioID,
			record.Language, record.Hypothesis, nullString(record.Translation),
			string(record.Outcome), nullString(record.FailedStage), nullString(record.Error), nullString(record.MergeOutcome),
			record.Score, string(scores), record.RefineCount, record.Rounds, nullString(string(record.Evaluations)),
			nullString(record.PromptRevision), nullString(record.TranslationHash),
			record.StartedAt.UTC(), record.FinishedAt.UTC(), record.RecordedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return evidence.NewStorageError("sqlite", "build_insert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return evidence.NewStorageError("sqlite", "store", evidence.ErrDuplicateRecord)
		}
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.ScenarioRecord, error) {
	query, args, err := s.selectQuery(q)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "build_query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.ScenarioRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams records matching the query filters.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.ScenarioRecord, <-chan error, error) {
	query, args, err := s.selectQuery(q)
	if err != nil {
		return nil, nil, evidence.NewStorageError("sqlite", "build_query", err)
	}

	recordsCh := make(chan *evidence.ScenarioRecord, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	builder := sq.Select("COUNT(*)").From(recordsTable)
	if cond := whereClause(q); len(cond) > 0 {
		builder = builder.Where(cond)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "build_count", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters. Pagination and
// sorting are ignored.
func (s *SQLiteStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	builder := sq.Delete(recordsTable)
	if cond := whereClause(q); len(cond) > 0 {
		builder = builder.Where(cond)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "build_delete", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Debug("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) selectQuery(q *evidence.Query) (string, []interface{}, error) {
	sortBy, desc := sortSpec(q)
	order := "ASC"
	if desc {
		order = "DESC"
	}

	builder := sq.Select(recordColumns...).
		From(recordsTable).
		OrderBy(sortBy+" "+order, "id "+order).
		Limit(uint64(effectiveLimit(q)))
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}
	if cond := whereClause(q); len(cond) > 0 {
		builder = builder.Where(cond)
	}
	return builder.ToSql()
}

// whereClause converts the query filters to squirrel conditions.
func whereClause(q *evidence.Query) sq.And {
	var cond sq.And

	if q.StartTime != nil {
		cond = append(cond, sq.GtOrEq{"finished_at": q.StartTime.UTC()})
	}
	if q.EndTime != nil {
		cond = append(cond, sq.LtOrEq{"finished_at": q.EndTime.UTC()})
	}
	if q.RunID != "" {
		cond = append(cond, sq.Eq{"run_id": q.RunID})
	}
	if q.Language != "" {
		cond = append(cond, sq.Eq{"language": q.Language})
	}
	if q.Outcome != "" {
		cond = append(cond, sq.Eq{"outcome": string(q.Outcome)})
	}
	if q.FailedStage != "" {
		cond = append(cond, sq.Eq{"failed_stage": q.FailedStage})
	}
	if q.MinScore != nil {
		cond = append(cond, sq.GtOrEq{"score": *q.MinScore})
	}
	if q.MaxScore != nil {
		cond = append(cond, sq.LtOrEq{"score": *q.MaxScore})
	}

	return cond
}

func scanRecord(rows *sql.Rows) (*evidence.ScenarioRecord, error) {
	var record evidence.ScenarioRecord
	var outcome string
	var translation, failedStage, errorVal, mergeOutcome sql.NullString
	var scores, evaluations, revision, hash sql.NullString

	err := rows.Scan(
		&record.ID, &record.RunID, &record.ScenarioID,
		&record.Language, &record.Hypothesis, &translation,
		&outcome, &failedStage, &errorVal, &mergeOutcome,
		&record.Score, &scores, &record.RefineCount, &record.Rounds, &evaluations,
		&revision, &hash,
		&record.StartedAt, &record.FinishedAt, &record.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Outcome = evidence.Outcome(outcome)
	record.Translation = translation.String
	record.FailedStage = failedStage.String
	record.Error = errorVal.String
	record.MergeOutcome = mergeOutcome.String
	record.PromptRevision = revision.String
	record.TranslationHash = hash.String

	if scores.Valid && scores.String != "" && scores.String != "null" {
		if err := json.Unmarshal([]byte(scores.String), &record.Scores); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
	}
	if evaluations.Valid && evaluations.String != "" {
		record.Evaluations = json.RawMessage(evaluations.String)
	}

	return &record, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
