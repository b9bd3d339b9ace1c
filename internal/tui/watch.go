package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// maxFailedItemsShown caps the failed item list in the watch view.
const maxFailedItemsShown = 8

// CancelFunc requests cancellation of the watched job.
type CancelFunc func(ctx context.Context) (domain.BatchJob, error)

// BatchWatchConfig holds configuration for the batch watch view.
type BatchWatchConfig struct {
	// ExitOnDone quits once the job settles.
	ExitOnDone bool
}

// BatchWatchModel is the Bubble Tea model for `inkwell batch watch`.
// Snapshots arrive on a channel fed by the tracker subscription.
type BatchWatchModel struct {
	job     domain.BatchJob
	updates <-chan domain.BatchJob
	cancel  CancelFunc
	config  BatchWatchConfig

	bar      *ProgressBar
	width    int
	err      error
	quitting bool

	// baseCtx is stored for use in async Bubble Tea commands.
	baseCtx context.Context //nolint:containedctx // Required for Bubble Tea async commands
}

// SnapshotMsg carries a new job snapshot.
type SnapshotMsg domain.BatchJob

// cancelResultMsg carries the outcome of a cancel request.
type cancelResultMsg struct {
	job domain.BatchJob
	err error
}

// updatesClosedMsg signals that the snapshot channel was closed.
type updatesClosedMsg struct{}

// NewBatchWatchModel creates a watch model starting from initial.
func NewBatchWatchModel(ctx context.Context, initial domain.BatchJob, updates <-chan domain.BatchJob, cancel CancelFunc, cfg BatchWatchConfig) *BatchWatchModel {
	return &BatchWatchModel{
		job:     initial,
		updates: updates,
		cancel:  cancel,
		config:  cfg,
		bar:     NewProgressBar(40),
		width:   DefaultTerminalWidth,
		baseCtx: ctx,
	}
}

// Job returns the last snapshot seen.
func (m *BatchWatchModel) Job() domain.BatchJob {
	return m.job
}

// Err returns the last cancel error, if any.
func (m *BatchWatchModel) Err() error {
	return m.err
}

// Init waits for the first snapshot.
func (m *BatchWatchModel) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *BatchWatchModel) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		job, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return SnapshotMsg(job)
	}
}

func (m *BatchWatchModel) requestCancel() tea.Cmd {
	ctx, cancel := m.baseCtx, m.cancel
	return func() tea.Msg {
		job, err := cancel(ctx)
		return cancelResultMsg{job: job, err: err}
	}
}

// Done reports whether the watched job has settled: complete, cancelled, or
// back to idle after the queue stopped answering.
func (m *BatchWatchModel) Done() bool {
	return !m.job.State.IsActive()
}

// Update handles messages and returns the updated model and any commands.
func (m *BatchWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "c":
			if m.cancel != nil && m.job.State.IsActive() && m.job.State != domain.JobStateCancelling {
				return m, m.requestCancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.SetWidth(min(max(msg.Width-20, 10), 60))
		return m, nil

	case SnapshotMsg:
		m.job = domain.BatchJob(msg)
		if m.config.ExitOnDone && m.Done() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForSnapshot()

	case cancelResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.job = msg.job
		}
		return m, nil

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the job state, progress and failures.
func (m *BatchWatchModel) View() string {
	styles := NewOutputStyles()
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Render("Batch: " + m.job.Kind.String())
	fmt.Fprintf(&b, "%s  %s\n\n", title, FormatJobState(m.job.State))

	switch {
	case m.job.State == domain.JobStateIdle:
		b.WriteString(FormatEligibility(m.job) + "\n")
		if m.job.Outcome == domain.JobOutcomeCancelled {
			b.WriteString(styles.Warning.Render("Job cancelled.") + "\n")
		}
	default:
		fmt.Fprintf(&b, "%s %3.0f%%\n", m.bar.Render(m.job.CompletionRatio()), m.job.CompletionRatio()*100)
		b.WriteString(FormatCounts(m.job) + "\n")
		if m.job.LastUsedService != "" {
			b.WriteString(styles.Dim.Render("service: "+m.job.LastUsedService) + "\n")
		}
	}

	if len(m.job.FailedItems) > 0 {
		b.WriteString("\n" + styles.Error.Render(fmt.Sprintf("Failed items (%d)", len(m.job.FailedItems))) + "\n")
		for i, item := range m.job.FailedItems {
			if i == maxFailedItemsShown {
				fmt.Fprintf(&b, "  … and %d more\n", len(m.job.FailedItems)-maxFailedItemsShown)
				break
			}
			b.WriteString(Truncate(fmt.Sprintf("  #%s  %s", item.ID, item.Message), m.width) + "\n")
		}
	}

	if m.err != nil {
		msg, _ := inkerrors.Actionable(m.err)
		b.WriteString("\n" + styles.Error.Render("✗ "+msg) + "\n")
	}

	if !m.quitting {
		hint := "q quit"
		if m.cancel != nil && m.job.State.IsActive() {
			hint = "c cancel · " + hint
		}
		b.WriteString("\n" + styles.Dim.Render(hint) + "\n")
	}
	return b.String()
}
