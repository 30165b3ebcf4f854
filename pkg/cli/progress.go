package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const progressWidth = 40

// ProgressReporter tracks finished scenarios of a batch.
type ProgressReporter interface {
	Start(total int64)
	Increment(failed bool)
	Finish()
}

// SimpleProgress redraws one carriage-returned line per update:
//
//	Scenarios: [████░░░░] 50.0% (2/4, 1 failed) 1.00/s
type SimpleProgress struct {
	w   io.Writer
	now func() time.Time

	mu          sync.Mutex
	total, done int64
	failed      int64
	started     time.Time
}

// NewProgressReporter writes to w, or to os.Stderr when w is nil.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{w: w, now: time.Now}
}

func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done, p.failed = total, 0, 0
	p.started = p.now()
	p.draw()
}

func (p *SimpleProgress) Increment(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if failed {
		p.failed++
	}
	p.draw()
}

// Finish terminates the line. The count is left as is, so a batch cut off
// by its deadline ends below 100%.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *SimpleProgress) draw() {
	if p.total <= 0 {
		return
	}
	frac := float64(min(p.done, p.total)) / float64(p.total)
	filled := int(frac * progressWidth)

	var rate float64
	if secs := p.now().Sub(p.started).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}

	fmt.Fprintf(p.w, "\rScenarios: [%s%s] %.1f%% (%d/%d, %d failed) %.2f/s",
		strings.Repeat("█", filled), strings.Repeat("░", progressWidth-filled),
		frac*100, p.done, p.total, p.failed, rate)
}
