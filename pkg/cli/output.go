package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mercator-hq/polyglot/pkg/dataset"
	"mercator-hq/polyglot/pkg/evidence"
	"mercator-hq/polyglot/pkg/scheduler"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is styled terminal output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unsupported format %q (valid: text, json)", s))
	}
}

// WriteJSON writes data as indented JSON.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Styles holds the lipgloss styles for one output stream. Colors are
// dropped automatically when the stream is not a terminal.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Fail  lipgloss.Style
	Muted lipgloss.Style
	Box   lipgloss.Style

	renderer *lipgloss.Renderer
}

// NewStyles creates styles rendered for w.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		Title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		Label: r.NewStyle().Width(12).Foreground(lipgloss.Color("#AAAAAA")),
		OK:    r.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		Warn:  r.NewStyle().Foreground(lipgloss.Color("#D29922")),
		Fail:  r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		Muted: r.NewStyle().Foreground(lipgloss.Color("#888888")),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1),
		renderer: r,
	}
}

func (s *Styles) line(label, value string) string {
	return s.Label.Render(label) + value
}

// RenderReport formats a batch report.
func (s *Styles) RenderReport(r scheduler.Report) string {
	status := s.OK.Render("complete")
	switch {
	case r.Cancelled:
		status = s.Warn.Render("cancelled")
	case r.TimedOut:
		status = s.Warn.Render("timed out")
	}

	failed := fmt.Sprintf("%d", r.Failed)
	if r.Failed > 0 {
		failed = s.Fail.Render(failed)
	}
	abandoned := fmt.Sprintf("%d", r.Abandoned)
	if r.Abandoned > 0 {
		abandoned = s.Warn.Render(abandoned)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Batch "+r.RunID),
		s.line("status", status),
		s.line("window", fmt.Sprintf("[%d, %d)", r.Window.Start, r.Window.End)),
		s.line("completed", fmt.Sprintf("%d of %d", r.Completed, r.Window.Len())),
		s.line("accepted", s.OK.Render(fmt.Sprintf("%d", r.Accepted))),
		s.line("failed", failed),
		s.line("abandoned", abandoned),
		s.line("duration", r.Duration.Round(time.Millisecond).String()),
	)
	return s.Box.Render(body)
}

// RenderRebuild formats the result of a TSV rebuild.
func (s *Styles) RenderRebuild(path string, stats dataset.RebuildStats) string {
	skipped := fmt.Sprintf("%d", stats.Skipped)
	if stats.Skipped > 0 {
		skipped = s.Warn.Render(skipped)
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Rebuilt "+path),
		s.line("records", fmt.Sprintf("%d", stats.Records)),
		s.line("inserted", fmt.Sprintf("%d", stats.Inserted)),
		s.line("updated", fmt.Sprintf("%d", stats.Updated)),
		s.line("skipped", skipped),
		s.line("rows", fmt.Sprintf("%d", stats.Rows)),
	)
	return s.Box.Render(body)
}

// RenderRecords formats scenario records as an aligned table.
func (s *Styles) RenderRecords(records []*evidence.ScenarioRecord) string {
	if len(records) == 0 {
		return s.Muted.Render("no scenario records")
	}

	widths := []int{6, 10, 8, 12, 6, 40}
	cell := func(i int, v string) string {
		return s.renderer.NewStyle().Width(widths[i]).MaxWidth(widths[i]).Render(v)
	}
	row := func(values ...string) string {
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cell(i, v) + " "
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}

	lines := []string{s.Title.Render(row("ID", "OUTCOME", "SCORE", "STAGE", "REF", "HYPOTHESIS"))}
	for _, r := range records {
		outcome := s.OK.Render(string(r.Outcome))
		if r.Outcome == evidence.OutcomeFailed {
			outcome = s.Fail.Render(string(r.Outcome))
		}
		lines = append(lines, row(
			fmt.Sprintf("%d", r.ScenarioID),
			outcome,
			fmt.Sprintf("%.2f", r.Score),
			r.FailedStage,
			fmt.Sprintf("%d", r.RefineCount),
			truncate(r.Hypothesis, widths[5]-1),
		))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
