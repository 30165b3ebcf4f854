package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/evidence/export"
	"mercator-hq/polyglot/pkg/evidence/query"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days records are kept.
	// 0 keeps records forever.
	RetentionDays int

	// MaxRecords caps the number of stored records; the oldest go first.
	// 0 means unlimited.
	MaxRecords int64

	// ArchiveDir receives a JSON export of every pruned batch.
	// Empty deletes without archiving.
	ArchiveDir string
}

// ConfigFrom converts the evidence.retention configuration section.
func ConfigFrom(cfg config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		MaxRecords:    cfg.MaxRecords,
		ArchiveDir:    cfg.ArchiveDir,
	}
}

// Enabled reports whether any pruning rule is configured.
func (c *Config) Enabled() bool {
	return c.RetentionDays > 0 || c.MaxRecords > 0
}

// Pruner enforces retention on a scenario record store.
type Pruner struct {
	storage evidence.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithLogger sets the pruner logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pruner) { p.logger = l }
}

// WithClock overrides the clock used for the age cutoff.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

// NewPruner creates a pruner. A nil config prunes nothing.
func NewPruner(storage evidence.Storage, cfg *Config, opts ...Option) *Pruner {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "evidence.retention")
	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords, and returns the total deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, evidence.NewRetentionError("age", err)
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, evidence.NewRetentionError("count", err)
		}
		total += deleted
	}

	if total > 0 {
		p.logger.Info("scenario records pruned",
			"deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	q := &evidence.Query{EndTime: &cutoff}

	if p.config.ArchiveDir != "" {
		records, err := p.storage.Query(ctx, &evidence.Query{EndTime: &cutoff, Limit: query.MaxLimit})
		if err != nil {
			return 0, fmt.Errorf("query records to archive: %w", err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, err
		}
	}

	return p.storage.Delete(ctx, q)
}

// pruneByCount deletes up to query.MaxLimit of the oldest records per pass.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}
	if excess > query.MaxLimit {
		excess = query.MaxLimit
	}

	oldest, err := p.storage.Query(ctx, &evidence.Query{
		Limit:     int(excess),
		SortBy:    "finished_at",
		SortOrder: "asc",
	})
	if err != nil {
		return 0, fmt.Errorf("query oldest records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if err := p.archive(ctx, "count", oldest); err != nil {
		return 0, err
	}

	// Records finishing at the same instant as the cutoff go too.
	cutoff := oldest[len(oldest)-1].FinishedAt
	return p.storage.Delete(ctx, &evidence.Query{EndTime: &cutoff})
}

func (p *Pruner) archive(ctx context.Context, phase string, records []*evidence.ScenarioRecord) error {
	if p.config.ArchiveDir == "" || len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("scenarios-%s-%s.json", phase, p.now().UTC().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchiveDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}

	p.logger.Info("scenario records archived", "path", path, "records", len(records))
	return nil
}
