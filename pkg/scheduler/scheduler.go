package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/polyglot/pkg/telemetry/logging"
	"mercator-hq/polyglot/pkg/telemetry/metrics"
	"mercator-hq/polyglot/pkg/telemetry/tracing"
	"mercator-hq/polyglot/pkg/workflow"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Defaults.
const (
	DefaultMaxConcurrency = 8
	DefaultTimeout        = 7200 * time.Second
	DefaultDrainTimeout   = 5 * time.Second
)

// progressEvery is how often a completion count is logged at info level.
const progressEvery = 10

// Runner runs one scenario to a terminal state. *workflow.Machine
// implements it.
type Runner interface {
	Run(ctx context.Context, sc workflow.Scenario) workflow.Result
}

// Window selects hypotheses [Start, End) of a batch. End <= 0 means the end
// of the batch.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Clamp bounds the window to a batch of n hypotheses.
func (w Window) Clamp(n int) Window {
	start, end := w.Start, w.End
	if start < 0 {
		start = 0
	}
	if end <= 0 || end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return Window{Start: start, End: end}
}

// Len returns the number of hypotheses in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Config configures a Scheduler.
type Config struct {
	// MaxConcurrency caps in-flight scenarios.
	MaxConcurrency int

	// Timeout is the batch deadline. Scenarios still running at the
	// deadline are abandoned: cancelled, never merged and never counted.
	Timeout time.Duration

	// DrainTimeout bounds how long Run waits for abandoned scenarios to
	// unwind after the deadline.
	DrainTimeout time.Duration
}

// Report summarizes a batch.
type Report struct {
	RunID  string `json:"run_id"`
	Window Window `json:"window"`

	// Completed counts finished scenarios, accepted and failed.
	Completed int `json:"completed"`
	Accepted  int `json:"accepted"`
	Failed    int `json:"failed"`

	// Abandoned counts scenarios started or queued but not finished
	// before the deadline.
	Abandoned int `json:"abandoned"`

	TimedOut  bool          `json:"timed_out"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration_ns"`
}

// finished is a runner result tagged with whether it ended before the
// batch context did.
type finished struct {
	res    workflow.Result
	inTime bool
}

// Scheduler fans a window of scenarios out to a Runner.
type Scheduler struct {
	runner   Runner
	settings workflow.Settings
	config   Config
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
	onResult func(workflow.Result)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records batch metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scheduler) { s.metrics = c }
}

// WithTracer wraps batches in scheduler.batch spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// OnResult is called, in completion order, for every counted result.
func OnResult(fn func(workflow.Result)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// New creates a scheduler.
func New(runner Runner, settings workflow.Settings, cfg Config, opts ...Option) *Scheduler {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	s := &Scheduler{
		runner:   runner,
		settings: settings,
		config:   cfg,
		tracer:   tracing.Noop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Run runs one scenario per hypothesis in window and consumes results in
// arrival order until all are done, the deadline passes or ctx is
// cancelled. A deadline is not an error; the report carries the count
// reached so far.
func (s *Scheduler) Run(ctx context.Context, hypotheses []string, window Window) Report {
	win := window.Clamp(len(hypotheses))
	report := Report{RunID: s.settings.RunID, Window: win}
	began := time.Now()

	ctx = logging.WithRunID(ctx, s.settings.RunID)
	ctx = logging.WithLanguage(ctx, s.settings.SecondLanguage)
	ctx, span := s.tracer.Start(ctx, tracing.SpanBatch, trace.WithAttributes(
		tracing.AttrRunID.String(s.settings.RunID),
		tracing.AttrWindowStart.Int(win.Start),
		tracing.AttrWindowEnd.Int(win.End),
		tracing.AttrLanguage.String(s.settings.SecondLanguage),
	))
	defer span.End()

	batchCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	s.logger.InfoContext(ctx, "batch started",
		"start", win.Start,
		"end", win.End,
		"scenarios", win.Len(),
		"max_concurrency", s.config.MaxConcurrency,
		"timeout", s.config.Timeout,
	)

	// Buffered to the window size so abandoned workers never block.
	results := make(chan finished, win.Len())
	var workers sync.WaitGroup
	dispatched := make(chan struct{})

	go func() {
		defer close(dispatched)
		sem := semaphore.NewWeighted(int64(s.config.MaxConcurrency))
		for i := win.Start; i < win.End; i++ {
			if err := sem.Acquire(batchCtx, 1); err != nil {
				return
			}
			sc := workflow.NewScenario(i, hypotheses[i], s.settings)
			workers.Add(1)
			go func() {
				defer workers.Done()
				defer sem.Release(1)
				s.metrics.ScenarioStarted()
				res := s.runner.Run(batchCtx, sc)
				s.metrics.ScenarioFinished()
				// An accepted result is already merged, so it counts even
				// if the deadline passed right after the merge.
				results <- finished{res: res, inTime: batchCtx.Err() == nil || res.Accepted()}
			}()
		}
	}()

	count := func(f finished) {
		if !f.inTime {
			return
		}
		report.Completed++
		if f.res.Accepted() {
			report.Accepted++
		} else {
			report.Failed++
		}
		s.logResult(ctx, f.res, report.Completed)
		if s.onResult != nil {
			s.onResult(f.res)
		}
	}

	received := 0
consume:
	for received < win.Len() {
		select {
		case f := <-results:
			received++
			count(f)
		case <-batchCtx.Done():
			break consume
		}
	}

	if received < win.Len() {
		// Results that finished before the deadline but were not read yet
		// are still counted once the abandoned workers have unwound.
		cancel()
		s.drain(ctx, dispatched, &workers)
	buffered:
		for {
			select {
			case f := <-results:
				count(f)
			default:
				break buffered
			}
		}
	}

	if err := batchCtx.Err(); err != nil && report.Completed < win.Len() {
		report.Abandoned = win.Len() - report.Completed
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			report.TimedOut = true
			s.logger.WarnContext(ctx, "batch deadline reached, abandoning in-flight scenarios",
				"timeout", s.config.Timeout,
				"completed", report.Completed,
				"abandoned", report.Abandoned,
			)
		} else {
			report.Cancelled = true
			s.logger.WarnContext(ctx, "batch cancelled",
				"completed", report.Completed,
				"abandoned", report.Abandoned,
			)
		}
	}

	report.Duration = time.Since(began)
	s.metrics.RecordBatch(report.Completed, report.TimedOut, report.Duration)
	tracing.SetAttributes(span,
		attribute.Int("polyglot.batch.completed", report.Completed),
		attribute.Int("polyglot.batch.accepted", report.Accepted),
		attribute.Bool("polyglot.batch.timed_out", report.TimedOut),
	)
	tracing.SetOK(span)

	s.logger.InfoContext(ctx, "batch finished",
		"completed", report.Completed,
		"accepted", report.Accepted,
		"failed", report.Failed,
		"abandoned", report.Abandoned,
		"duration", report.Duration,
	)
	return report
}

func (s *Scheduler) logResult(ctx context.Context, res workflow.Result, completed int) {
	ctx = logging.WithScenarioID(ctx, res.Scenario.ID)
	if res.Accepted() {
		s.logger.DebugContext(ctx, "scenario completed", "completed", completed, "score", res.Scenario.AggregateScore)
	} else {
		s.logger.DebugContext(ctx, "scenario completed with failure", "completed", completed, "error", res.Err)
	}
	if completed%progressEvery == 0 {
		s.logger.InfoContext(ctx, "batch progress", "completed", completed)
	}
}

// drain waits for cancelled workers to return, up to DrainTimeout.
func (s *Scheduler) drain(ctx context.Context, dispatched <-chan struct{}, workers *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		<-dispatched
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.config.DrainTimeout):
		s.logger.WarnContext(ctx, "abandoned scenarios still running after drain timeout",
			"drain_timeout", s.config.DrainTimeout,
		)
	}
}
