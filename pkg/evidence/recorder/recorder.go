package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/polyglot/pkg/config"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/workflow"
)

// Config contains configuration for the scenario recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and drops
	// every result.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both the wait for buffer space and each storage
	// write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  config.DefaultEvidenceRecorderAsyncBuffer,
		WriteTimeout: config.DefaultEvidenceRecorderWriteTimeout,
	}
}

// ConfigFrom builds a recorder configuration from the evidence section.
func ConfigFrom(cfg config.EvidenceConfig) *Config {
	c := DefaultConfig()
	c.Enabled = cfg.IsEnabled()
	if cfg.Recorder.AsyncBuffer > 0 {
		c.AsyncBuffer = cfg.Recorder.AsyncBuffer
	}
	if cfg.Recorder.WriteTimeout > 0 {
		c.WriteTimeout = cfg.Recorder.WriteTimeout
	}
	return c
}

// Recorder turns finished workflow results into scenario records and writes
// them to storage from a single background worker.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.ScenarioRecord
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	written int64
	failed  int64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithClock overrides the RecordedAt clock.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage evidence.Storage, cfg *Config, opts ...Option) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AsyncBuffer < 0 {
		cfg.AsyncBuffer = 0
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *evidence.ScenarioRecord, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "evidence.recorder")

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("evidence recorder initialized",
		"enabled", cfg.Enabled,
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record enqueues the record of a finished scenario. It returns once the
// record is buffered, never waiting on storage. The caller's context is not
// consulted: a result that was counted is recorded even while the batch is
// shutting down.
func (r *Recorder) Record(ctx context.Context, settings workflow.Settings, res workflow.Result) error {
	if !r.config.Enabled {
		return nil
	}

	record := NewRecord(settings, res, r.now())

	select {
	case <-r.done:
		return evidence.NewRecorderError(record.ID, errors.New("recorder closed"))
	default:
	}

	select {
	case r.recordChan <- record:
		r.logger.DebugContext(ctx, "scenario record enqueued",
			"record_id", record.ID,
			"scenario_id", record.ScenarioID,
			"outcome", record.Outcome,
		)
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.logger.ErrorContext(ctx, "evidence channel full, dropping record",
			"record_id", record.ID,
			"scenario_id", record.ScenarioID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.countFailure()
		return evidence.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.countFailure()
		return evidence.NewRecorderError(record.ID, context.Canceled)
	}
}

// Close stops accepting records, drains the buffer and waits for the
// worker. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		written, failed := r.Stats()
		r.logger.Info("evidence recorder closed", "written", written, "failed", failed)
	})
	return nil
}

// Stats returns how many records were written and how many were lost.
func (r *Recorder) Stats() (written, failed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.failed
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.ScenarioRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store scenario record",
			"record_id", record.ID,
			"scenario_id", record.ScenarioID,
			"error", err,
		)
		r.countFailure()
		return
	}

	r.mu.Lock()
	r.written++
	r.mu.Unlock()

	duration := time.Since(start)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow evidence write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

func (r *Recorder) countFailure() {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

// NewRecord builds the scenario record of res.
func NewRecord(settings workflow.Settings, res workflow.Result, recordedAt time.Time) *evidence.ScenarioRecord {
	sc := res.Scenario

	record := &evidence.ScenarioRecord{
		ID:             uuid.New().String(),
		RunID:          settings.RunID,
		ScenarioID:     sc.ID,
		Language:       sc.SecondLanguage,
		Hypothesis:     sc.Hypothesis,
		Translation:    sc.Translation,
		Outcome:        evidence.OutcomeFailed,
		MergeOutcome:   string(res.Merge),
		Score:          sc.AggregateScore,
		RefineCount:    sc.RefineCount,
		Rounds:         res.Rounds,
		PromptRevision: settings.Revision(),
		StartedAt:      res.Started,
		FinishedAt:     res.Finished,
		RecordedAt:     recordedAt,
	}

	if res.Accepted() {
		record.Outcome = evidence.OutcomeAccepted
	}
	if res.Err != nil {
		record.Error = res.Err.Error()
		var stageErr *workflow.StageError
		if errors.As(res.Err, &stageErr) {
			record.FailedStage = string(stageErr.Stage)
		}
	}
	if len(sc.Evaluations) > 0 {
		record.Scores = sc.Scores()
		if data, err := json.Marshal(sc.Evaluations); err == nil {
			record.Evaluations = data
		}
	}
	if sc.Translation != "" {
		record.TranslationHash = HashString(sc.Translation)
	}

	return record
}
