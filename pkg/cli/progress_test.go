package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf).(*SimpleProgress)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	p.Start(4)
	clock = clock.Add(2 * time.Second)
	p.Increment(false)
	p.Increment(true)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "Scenarios:") {
		t.Errorf("missing prefix: %q", out)
	}
	if !strings.Contains(out, "50.0% (2/4, 1 failed) 1.00/s") {
		t.Errorf("unexpected final line: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should end the line")
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf)

	p.Start(0)
	p.Increment(false)
	p.Finish()

	if buf.String() != "\n" {
		t.Errorf("zero total rendered %q", buf.String())
	}
}
