package ui

import (
	"fmt"
	"io"
	"time"

	"wavebench/internal/benchmark"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Console prints human-oriented progress lines. It is safe to use from one
// goroutine at a time.
type Console struct {
	w  io.Writer
	st styles
}

// NewConsole detects the colour profile of w.
func NewConsole(w io.Writer) *Console {
	return newConsole(w, lipgloss.NewRenderer(w))
}

// NewPlainConsole never emits escape sequences.
func NewPlainConsole(w io.Writer) *Console {
	return NewConsoleWithProfile(w, termenv.Ascii)
}

// NewConsoleWithProfile forces a colour profile.
func NewConsoleWithProfile(w io.Writer, profile termenv.Profile) *Console {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return newConsole(w, r)
}

func newConsole(w io.Writer, r *lipgloss.Renderer) *Console {
	return &Console{w: w, st: newStyles(r)}
}

// Header prints a banner line.
func (c *Console) Header(title string) {
	fmt.Fprintln(c.w, c.st.header.Render(title))
}

// Step announces a phase of the batch.
func (c *Console) Step(format string, args ...any) {
	fmt.Fprintf(c.w, "%s %s\n", c.st.step.Render("==>"), fmt.Sprintf(format, args...))
}

// Warn prints a non-fatal problem.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.w, c.st.warning.Render("warning: "+fmt.Sprintf(format, args...)))
}

// Detail prints an indented secondary line.
func (c *Console) Detail(format string, args ...any) {
	fmt.Fprintln(c.w, c.st.muted.Render("    "+fmt.Sprintf(format, args...)))
}

// ObserveInvocation prints one line per finished library invocation, so a
// Console can be handed to the orchestrator as a recorder.
func (c *Console) ObserveInvocation(library, outcome string, elapsed time.Duration) {
	mark := c.st.success.Render("OK  ")
	if outcome != "ok" {
		mark = c.st.failure.Render("FAIL")
	}
	line := fmt.Sprintf("  %s %s", mark, c.st.key.Render(library))
	if outcome != "ok" {
		line += " " + c.st.muted.Render("("+outcome+")")
	}
	fmt.Fprintf(c.w, "%s %s\n", line, c.st.muted.Render(elapsed.Round(time.Millisecond).String()))
}

// Totals prints the final ok/failed counts.
func (c *Console) Totals(passed, failed int) {
	ok := c.st.success.Render(fmt.Sprintf("%d ok", passed))
	bad := fmt.Sprintf("%d failed", failed)
	if failed > 0 {
		bad = c.st.failure.Render(bad)
	}
	fmt.Fprintf(c.w, "%s, %s\n", ok, bad)
}

// Comparison prints one line of a batch comparison.
func (c *Console) Comparison(cmp benchmark.Comparison) {
	verdict := cmp.Verdict()
	var label string
	switch verdict {
	case "FAIL":
		label = c.st.failure.Render(verdict)
	case "IMPR":
		label = c.st.success.Render(verdict)
	case "NEW":
		label = c.st.key.Render(verdict)
	default:
		label = c.st.muted.Render(verdict)
	}
	if !cmp.HasPrev {
		fmt.Fprintf(c.w, "[%s] %s: %.6fs (no baseline)\n", label, cmp.Key, cmp.Curr.MeanS)
		return
	}
	fmt.Fprintf(c.w, "[%s] %s: %.6fs -> %.6fs (%+.2f%% time, %+.2f%% memory)\n",
		label, cmp.Key, cmp.Prev.MeanS, cmp.Curr.MeanS, cmp.MeanDiff, cmp.MemDiff)
}
