package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Recurring runs consecutive windows of a batch on a cron schedule. Each
// tick reads the next start from the cursor, runs a window of WindowSize
// hypotheses and advances the cursor to the window end. Ticks never
// overlap; a tick that fires while the previous one is running is skipped.
type Recurring struct {
	scheduler  *Scheduler
	cursor     *Cursor
	key        string
	hypotheses []string
	windowSize int
	logger     *slog.Logger
	afterTick  func(Report)

	mu       sync.Mutex
	cron     *cron.Cron
	running  bool
	finished chan struct{}
	once     sync.Once
}

// NewRecurring creates a recurring runner. key names the cursor row,
// typically the embedded language.
func NewRecurring(s *Scheduler, cursor *Cursor, key string, hypotheses []string, windowSize int) *Recurring {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Recurring{
		scheduler:  s,
		cursor:     cursor,
		key:        key,
		hypotheses: hypotheses,
		windowSize: windowSize,
		logger:     s.logger.With("component", "scheduler.recurring", "cursor", key),
		finished:   make(chan struct{}),
	}
}

// AfterTick registers fn to run after every scheduled tick that ran a
// window. It must be called before Start.
func (r *Recurring) AfterTick(fn func(Report)) {
	r.afterTick = fn
}

// Tick runs the next window. exhausted reports that the cursor reached the
// end of the batch; no scenarios run in that case.
func (r *Recurring) Tick(ctx context.Context) (report Report, exhausted bool, err error) {
	start, err := r.cursor.Next(ctx, r.key)
	if err != nil {
		return Report{}, false, err
	}
	if start >= len(r.hypotheses) {
		return Report{}, true, nil
	}

	win := Window{Start: start, End: start + r.windowSize}.Clamp(len(r.hypotheses))
	report = r.scheduler.Run(ctx, r.hypotheses, win)
	if report.Cancelled {
		// Interrupted by shutdown: run this window again next time.
		return report, false, nil
	}

	if err := r.cursor.Advance(ctx, r.key, win.End); err != nil {
		return report, false, err
	}
	return report, win.End >= len(r.hypotheses), nil
}

// Start schedules ticks on spec, a standard five-field cron expression.
// The schedule stops when ctx is cancelled or the batch is exhausted.
func (r *Recurring) Start(ctx context.Context, spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("recurring runner already started")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.cron.AddFunc(spec, func() { r.runTick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule windows: %w", err)
	}
	r.cron.Start()
	r.running = true

	r.logger.Info("recurring runner started",
		"schedule", spec,
		"window_size", r.windowSize,
		"hypotheses", len(r.hypotheses),
	)

	go func() {
		select {
		case <-ctx.Done():
		case <-r.finished:
		}
		r.Stop()
	}()
	return nil
}

func (r *Recurring) runTick(ctx context.Context) {
	report, exhausted, err := r.Tick(ctx)
	if err != nil {
		r.logger.Error("recurring window failed", "error", err)
		return
	}
	if report.Window.Len() > 0 {
		r.logger.Info("recurring window finished",
			"start", report.Window.Start,
			"end", report.Window.End,
			"completed", report.Completed,
			"timed_out", report.TimedOut,
		)
		if r.afterTick != nil {
			r.afterTick(report)
		}
	}
	if exhausted {
		r.logger.Info("batch exhausted, stopping recurring runner")
		r.once.Do(func() { close(r.finished) })
	}
}

// Done is closed once the batch is exhausted.
func (r *Recurring) Done() <-chan struct{} {
	return r.finished
}

// Stop stops scheduling and waits for a running tick to complete.
func (r *Recurring) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil && r.running {
		stopped := r.cron.Stop()
		<-stopped.Done()
		r.running = false
		r.logger.Info("recurring runner stopped")
	}
}

// NextRun returns the next scheduled tick, or nil when not running.
func (r *Recurring) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil || !r.running {
		return nil
	}
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
