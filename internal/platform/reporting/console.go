package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/harness"
)

var (
	colorPass  = lipgloss.Color("#2CD7C7")
	colorFail  = lipgloss.Color("#E74C3C")
	colorWarn  = lipgloss.Color("#F4D03F")
	colorMuted = lipgloss.Color("#2C4A54")
)

const (
	iconPass  = "✓"
	iconFail  = "✗"
	iconError = "⚠"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Console writes a human-readable report.
type Console struct {
	w     io.Writer
	color bool

	title lipgloss.Style
	pass  lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

// NewConsole returns a console report writer. Styling is applied only when
// color is true.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:     w,
		color: color,
		title: r.NewStyle().Bold(true),
		pass:  r.NewStyle().Foreground(colorPass),
		fail:  r.NewStyle().Foreground(colorFail).Bold(true),
		warn:  r.NewStyle().Foreground(colorWarn),
		muted: r.NewStyle().Foreground(colorMuted),
	}
}

func (c *Console) render(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}

// Render writes every patient followed by the summary.
func (c *Console) Render(rep *Report) {
	fmt.Fprintln(c.w, c.render(c.title, fmt.Sprintf("%s (%s)", rep.Measure, rep.Library)))
	fmt.Fprintln(c.w)
	for _, r := range rep.Results {
		c.renderPatient(r)
	}
	c.renderSummary(rep.Summary)
}

func (c *Console) statusIcon(s harness.Status) string {
	switch s {
	case harness.StatusPassed:
		return c.render(c.pass, iconPass)
	case harness.StatusFailed:
		return c.render(c.fail, iconFail)
	default:
		return c.render(c.warn, iconError)
	}
}

func (c *Console) renderPatient(r harness.PatientResult) {
	status := r.Status()
	header := r.TestCase
	if r.PatientID != "" {
		header += c.render(c.muted, " (patient "+r.PatientID+")")
	}
	fmt.Fprintf(c.w, "%s %s\n", c.statusIcon(status), header)

	if status == harness.StatusErrored {
		fmt.Fprintf(c.w, "    %s\n\n", c.render(c.warn, r.Error))
		return
	}
	for _, cmp := range r.Comparisons {
		icon := c.render(c.pass, iconPass)
		if !cmp.Passed {
			icon = c.render(c.fail, iconFail)
		}
		fmt.Fprintf(c.w, "    %s %-8s %-40s expected %-14s actual %-14s score %.2f / %.2f\n",
			icon,
			cmp.GroupID,
			cmp.GroupID.DisplayName(),
			formatObservations(cmp.GroupID, cmp.Expected),
			formatObservations(cmp.GroupID, cmp.Actual),
			cmp.ExpectedScore,
			cmp.ActualScore,
		)
		for _, m := range cmp.Mismatches {
			fmt.Fprintf(c.w, "        %s\n", c.render(c.fail, m))
		}
	}
	fmt.Fprintln(c.w)
}

func (c *Console) renderSummary(s harness.Summary) {
	line := fmt.Sprintf("%d patients: %d passed, %d failed, %d errored", s.Total, s.Passed, s.Failed, s.Errored)
	if s.OK() {
		line = c.render(c.pass, line)
	} else {
		line = c.render(c.fail, line)
	}
	fmt.Fprintln(c.w, c.render(c.title, "Summary"))
	fmt.Fprintf(c.w, "  %s\n", line)
	for _, g := range s.Groups {
		if g.Compared == 0 {
			continue
		}
		fmt.Fprintf(c.w, "  %-8s %-40s %d/%d passed  mean %.3f  median %.3f\n",
			g.GroupID, g.GroupID.DisplayName(), g.Passed, g.Compared, g.MeanScore, g.MedianScore)
	}
}

// formatObservations shows every slot for per-encounter groups and only the
// first for population groups.
func formatObservations(id scoring.GroupID, p scoring.PopulationCounts) string {
	if !id.PerEncounter() {
		return fmt.Sprintf("%d", p.Observations[0])
	}
	parts := make([]string, len(p.Observations))
	for i, v := range p.Observations {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
