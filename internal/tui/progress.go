package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/mrz1836/inkwell/internal/domain"
)

// ProgressBar wraps the charmbracelet/bubbles progress bar with inkwell styling.
// Supports adaptive width and NO_COLOR compatibility.
type ProgressBar struct {
	bar   progress.Model
	width int
}

// NewProgressBar creates a new progress bar.
// Uses a ColorPrimary gradient for styled rendering, solid fill for NO_COLOR mode.
func NewProgressBar(width int) *ProgressBar {
	var bar progress.Model
	if HasColorSupport() {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithScaledGradient("#0087AF", "#00D7FF"),
		)
	} else {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithSolidFill("#808080"),
		)
	}
	return &ProgressBar{bar: bar, width: width}
}

// Render returns the progress bar for a ratio in [0, 1].
// Uses ViewAs for static rendering (no animation).
func (pb *ProgressBar) Render(ratio float64) string {
	return pb.bar.ViewAs(min(max(ratio, 0), 1))
}

// Width returns the current width of the progress bar.
func (pb *ProgressBar) Width() int {
	return pb.width
}

// SetWidth updates the progress bar width.
func (pb *ProgressBar) SetWidth(w int) {
	pb.width = w
	pb.bar.Width = w
}

// FormatCounts summarizes a job's action counters, e.g. "12/40 done · 3 running · 1 failed".
func FormatCounts(job domain.BatchJob) string {
	s := fmt.Sprintf("%d/%d done", job.ActionsComplete, job.ActionsTotal)
	if job.ActionsPending > 0 {
		s += fmt.Sprintf(" · %d pending", job.ActionsPending)
	}
	if job.ActionsRunning > 0 {
		s += fmt.Sprintf(" · %d running", job.ActionsRunning)
	}
	if job.ActionsFailed > 0 {
		s += fmt.Sprintf(" · %d failed", job.ActionsFailed)
	}
	return s
}

// FormatEligibility summarizes the eligibility counters of an idle job.
func FormatEligibility(job domain.BatchJob) string {
	return fmt.Sprintf("%d of %d items missing a value", job.TotalMissing, job.TotalEligible)
}
