// Package sink renders pipeline output to the terminal and to GeoJSON.
package sink

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"geotrace/internal/models"
)

// progressStep is the granularity at which progress lines are printed
const progressStep = 10

type styles struct {
	info     lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	dim      lipgloss.Style
	headline lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, noColor bool) styles {
	if noColor {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{
		info:     r.NewStyle().Foreground(lipgloss.Color("12")),
		success:  r.NewStyle().Foreground(lipgloss.Color("10")),
		err:      r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:      r.NewStyle().Foreground(lipgloss.Color("8")),
		headline: r.NewStyle().Bold(true),
	}
}

// Terminal prints result lines, coarse progress and the final summary
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	styles   styles
	lastStep int
}

// NewTerminal creates a Terminal writing to w
func NewTerminal(w io.Writer, noColor bool) *Terminal {
	return &Terminal{
		out:    w,
		styles: newStyles(lipgloss.NewRenderer(w), noColor),
	}
}

func (t *Terminal) severity(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeveritySuccess:
		return t.styles.success
	case models.SeverityError:
		return t.styles.err
	}
	return t.styles.info
}

// Render prints one result line, plus the leg distance when a segment was drawn
func (t *Terminal) Render(inst models.RenderInstruction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, t.severity(inst.Severity).Render(inst.Line))
	if inst.Segment != nil {
		fmt.Fprintln(t.out, t.styles.dim.Render(fmt.Sprintf("    ↳ %s km from marker %d",
			humanize.CommafWithDigits(inst.Segment.DistanceKm, 1), inst.Segment.FromMarker)))
	}
}

// Progress prints a line each time the estimate crosses a multiple of ten
func (t *Terminal) Progress(percent float64) {
	step := int(math.Floor(percent/progressStep)) * progressStep
	t.mu.Lock()
	defer t.mu.Unlock()
	if step <= t.lastStep {
		return
	}
	t.lastStep = step
	fmt.Fprintln(t.out, t.styles.dim.Render(fmt.Sprintf("Progress: %d%%", step)))
}

// Finish prints the outcome message and the run statistics
func (t *Terminal) Finish(o models.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.styles.info
	switch o.Status {
	case models.OutcomeSuccess:
		style = t.styles.success
	case models.OutcomeFailed:
		style = t.styles.err
	}
	fmt.Fprintln(t.out, style.Render(o.Message))

	if o.Stats.HopCount == 0 {
		return
	}
	fmt.Fprintln(t.out, t.styles.headline.Render("Summary"))
	fmt.Fprintf(t.out, "  Hops:            %d\n", o.Stats.HopCount)
	fmt.Fprintf(t.out, "  Average latency: %s\n", o.Stats.AverageLatencyText)
	if o.Stats.PathDistanceKm > 0 {
		fmt.Fprintf(t.out, "  Path distance:   %s km\n", humanize.CommafWithDigits(o.Stats.PathDistanceKm, 1))
	}
}
