package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/inkwell/internal/batch"
	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/signal"
	"github.com/mrz1836/inkwell/internal/tui"
)

// exitCodeInterrupted is used when a second signal forces the process down.
const exitCodeInterrupted = 130

// watchBuffer is the snapshot queue depth between the tracker and a watcher.
const watchBuffer = 16

// batchRow is one job in `batch status` output.
type batchRow struct {
	domain.BatchJob
	CompletionRatio float64 `json:"completion_ratio"`
}

func newBatchCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run and monitor server-side batch jobs",
		Long: `Batch jobs fill in missing values across the site on the server:
image_alt_text, seo_title and seo_meta_description.

The queue endpoint is configured with batch.base_url (or INKWELL_BATCH_BASE_URL).`,
	}

	cmd.AddCommand(
		newBatchStatusCmd(flags),
		newBatchStartCmd(flags),
		newBatchCancelCmd(flags),
		newBatchWatchCmd(flags),
	)
	return cmd
}

// interruptible returns a context canceled by the first SIGINT or SIGTERM.
// A second signal exits immediately.
func interruptible(ctx context.Context) *signal.Handler {
	return signal.NewHandler(ctx, signal.WithForce(func(os.Signal) {
		CloseLogFile()
		os.Exit(exitCodeInterrupted) //nolint:revive // forced exit on repeated interrupt
	}))
}

// openTracker wires the app and returns its tracker, or ErrBatchNotConfigured.
func openTracker(ctx context.Context, flags *GlobalFlags) (*App, *batch.Tracker, error) {
	app, err := newApp(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	tracker, err := app.RequireTracker()
	if err != nil {
		_ = app.Close()
		return nil, nil, err
	}
	return app, tracker, nil
}

func jobRows(jobs []domain.BatchJob) []batchRow {
	rows := make([]batchRow, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, batchRow{BatchJob: job, CompletionRatio: job.CompletionRatio()})
	}
	return rows
}

// jobProgress summarizes a job for one table cell.
func jobProgress(job domain.BatchJob) string {
	if job.State == domain.JobStateIdle {
		if job.Outcome == domain.JobOutcomeCancelled {
			return "cancelled · " + tui.FormatEligibility(job)
		}
		return tui.FormatEligibility(job)
	}
	return tui.FormatCounts(job)
}

func printJobs(cmd *cobra.Command, flags *GlobalFlags, jobs []domain.BatchJob) error {
	out := stdout(cmd, flags)
	if flags.Output == OutputJSON {
		return out.JSON(map[string]any{"jobs": jobRows(jobs)})
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		service := job.LastUsedService
		if service == "" {
			service = "-"
		}
		rows = append(rows, []string{
			job.Kind.String(),
			tui.FormatJobState(job.State),
			jobProgress(job),
			service,
		})
	}
	out.Table([]string{"KIND", "STATE", "PROGRESS", "SERVICE"}, rows)

	for _, job := range jobs {
		if len(job.FailedItems) > 0 {
			out.Warning(fmt.Sprintf("%s: %d failed item(s), run `inkwell batch status %s -o json` for details",
				job.Kind, len(job.FailedItems), job.Kind))
		}
	}
	return nil
}

func newBatchStatusCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [kind]",
		Short: "Show eligibility and progress for batch jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind domain.JobKind
			if len(args) == 1 {
				k, err := domain.ParseJobKind(args[0])
				if err != nil {
					return err
				}
				kind = k
			}

			app, tracker, err := openTracker(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if kind == "" {
				jobs, err := tracker.RefreshAll(cmd.Context())
				if err != nil {
					return err
				}
				return printJobs(cmd, flags, jobs)
			}

			job, err := tracker.Poll(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return printJobs(cmd, flags, []domain.BatchJob{job})
		},
	}
}

func newBatchStartCmd(flags *GlobalFlags) *cobra.Command {
	var (
		service string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "start <kind>",
		Short: "Submit a batch job",
		Example: `  inkwell batch start image_alt_text
  inkwell batch start seo_title --service openai --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseJobKind(args[0])
			if err != nil {
				return err
			}

			h := interruptible(cmd.Context())
			defer h.Stop()
			ctx := h.Context()

			app, tracker, err := openTracker(ctx, flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if watch {
				return watchJob(ctx, cmd, flags, tracker, kind, func(ctx context.Context) (domain.BatchJob, error) {
					return tracker.Start(ctx, kind, batch.StartOptions{PreferredService: service})
				})
			}

			job, err := tracker.Start(ctx, kind, batch.StartOptions{PreferredService: service})
			if err != nil {
				return err
			}
			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(batchRow{BatchJob: job, CompletionRatio: job.CompletionRatio()})
			}
			out.Success(fmt.Sprintf("Started %s (%s)", kind, tui.FormatCounts(job)))
			out.Info(fmt.Sprintf("Follow progress with `inkwell batch watch %s`", kind))
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "preferred service slug for the queue")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch progress until the job finishes")
	return cmd
}

func newBatchCancelCmd(flags *GlobalFlags) *cobra.Command {
	var (
		yes   bool
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "cancel <kind>",
		Short: "Cancel the pending actions of a batch job",
		Long: `Cancel asks the queue to drop pending actions. Actions already running
finish; the job settles once the queue reports nothing in flight. A kind with
nothing in flight is left as it is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseJobKind(args[0])
			if err != nil {
				return err
			}

			if !yes {
				if flags.Output == OutputJSON || !tui.IsInteractive() {
					return errors.NewExitCode2Error(fmt.Errorf("%w: pass --yes to cancel without a prompt", errors.ErrInvalidArgument))
				}
				ok, err := tui.Confirm(fmt.Sprintf("Cancel the %s batch job?", kind), false)
				if err != nil {
					return err
				}
				if !ok {
					return errors.ErrOperationCanceled
				}
			}

			h := interruptible(cmd.Context())
			defer h.Stop()
			ctx := h.Context()

			app, tracker, err := openTracker(ctx, flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			cancel := func(ctx context.Context) (domain.BatchJob, error) {
				return tracker.Cancel(ctx, kind)
			}
			if watch {
				return watchJob(ctx, cmd, flags, tracker, kind, cancel)
			}

			job, err := cancel(ctx)
			if err != nil {
				return err
			}
			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(batchRow{BatchJob: job, CompletionRatio: job.CompletionRatio()})
			}
			if job.State != domain.JobStateCancelling {
				out.Info(fmt.Sprintf("Nothing in flight for %s", kind))
				return nil
			}
			out.Success(fmt.Sprintf("Cancellation requested for %s", kind))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch until the queue drains")
	return cmd
}

func newBatchWatchCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <kind>",
		Short: "Follow a batch job's progress live",
		Long: `Watch polls the queue and shows live progress until the job completes.
In the interactive view press c to cancel and q to leave; leaving does not
stop the server-side job.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseJobKind(args[0])
			if err != nil {
				return err
			}

			h := interruptible(cmd.Context())
			defer h.Stop()
			ctx := h.Context()

			app, tracker, err := openTracker(ctx, flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return watchJob(ctx, cmd, flags, tracker, kind, func(ctx context.Context) (domain.BatchJob, error) {
				return tracker.Poll(ctx, kind)
			})
		},
	}
}

// subscribe feeds tracker snapshots for kind into a channel. When the reader
// falls behind, the oldest queued snapshot is dropped so the latest always
// gets through.
func subscribe(tracker *batch.Tracker, kind domain.JobKind) (<-chan domain.BatchJob, func(), error) {
	updates := make(chan domain.BatchJob, watchBuffer)
	unsubscribe, err := tracker.Subscribe(kind, func(job domain.BatchJob) {
		for {
			select {
			case updates <- job:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return updates, unsubscribe, nil
}

// watchJob subscribes to kind, runs begin (start, cancel or a plain poll),
// and follows the job until it settles or ctx ends.
func watchJob(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, tracker *batch.Tracker, kind domain.JobKind, begin tui.CancelFunc) error {
	updates, unsubscribe, err := subscribe(tracker, kind)
	if err != nil {
		return err
	}
	defer unsubscribe()

	initial, err := begin(ctx)
	if err != nil {
		return err
	}

	// Drop snapshots queued while begin ran, then re-read the current state
	// so a change landing in between is seen either way.
	for drained := false; !drained; {
		select {
		case <-updates:
		default:
			drained = true
		}
	}
	if current, err := tracker.Snapshot(kind); err == nil {
		initial = current
	}

	if !initial.State.IsActive() {
		return printJobs(cmd, flags, []domain.BatchJob{initial})
	}

	if flags.Output == OutputText && isTerminal(cmd) {
		return runWatchProgram(ctx, cmd, tracker, kind, initial, updates)
	}
	return streamJob(ctx, cmd, flags, initial, updates)
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runWatchProgram(ctx context.Context, cmd *cobra.Command, tracker *batch.Tracker, kind domain.JobKind, initial domain.BatchJob, updates <-chan domain.BatchJob) error {
	model := tui.NewBatchWatchModel(ctx, initial, updates, func(ctx context.Context) (domain.BatchJob, error) {
		return tracker.Cancel(ctx, kind)
	}, tui.BatchWatchConfig{ExitOnDone: true})

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "watch view failed")
	}
	return model.Err()
}

// streamJob prints one line (or JSON object) per snapshot until the job settles.
func streamJob(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, job domain.BatchJob, updates <-chan domain.BatchJob) error {
	out := stdout(cmd, flags)
	emit := func(job domain.BatchJob) error {
		if flags.Output == OutputJSON {
			return out.JSON(batchRow{BatchJob: job, CompletionRatio: job.CompletionRatio()})
		}
		out.Info(fmt.Sprintf("%s %s: %s", job.Kind, job.State, jobProgress(job)))
		return nil
	}

	if err := emit(job); err != nil {
		return err
	}
	last := job
	for !settled(last) {
		select {
		case <-ctx.Done():
			return nil
		case next := <-updates:
			if next.State == last.State && next.BatchCounts == last.BatchCounts {
				last = next
				continue
			}
			last = next
			if err := emit(last); err != nil {
				return err
			}
		}
	}
	if flags.Output == OutputText && last.State == domain.JobStateComplete {
		out.Success(fmt.Sprintf("%s finished: %s", last.Kind, tui.FormatCounts(last)))
	}
	return nil
}

// settled reports whether a job needs no further polling.
func settled(job domain.BatchJob) bool {
	return !job.State.IsActive()
}
