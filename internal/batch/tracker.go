package batch

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/inkwell/internal/clock"
	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/ctxutil"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// PollInterval is the delay between polls while work is in flight.
	PollInterval time.Duration

	// Clock drives the poll delay. Defaults to the real clock.
	Clock clock.Clock
}

// StartOptions are the per-job submit options.
type StartOptions struct {
	// PreferredService is forwarded to the queue; empty lets the server pick.
	PreferredService string
}

// Listener receives every state change of a job kind as an immutable snapshot.
// Deliveries for one kind are serialized and never go backwards. A listener
// may read snapshots but must not call mutating Tracker methods.
type Listener func(job domain.BatchJob)

// Tracker is the client-side controller for server-side batch jobs.
//
// Each job kind has its own state machine:
//
//	idle -> submitting -> polling -> complete
//	                         |
//	                         +-> cancelling -> idle
//
// At most one polling loop runs per kind, and polls for a kind never overlap.
// The state lock is never held across queue I/O.
type Tracker struct {
	client   QueueClient
	interval time.Duration
	clock    clock.Clock
	logger   zerolog.Logger

	ctx    context.Context //nolint:containedctx // lifetime of background polling loops
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	jobs   map[domain.JobKind]*jobEntry
	nextID int
	closed bool
}

type jobEntry struct {
	job     domain.BatchJob
	version uint64

	looping bool
	polling bool

	listeners map[int]Listener

	// deliverMu orders listener callbacks; delivered is the last version sent.
	deliverMu sync.Mutex
	delivered uint64
}

// NewTracker creates a tracker for every supported job kind, all idle.
func NewTracker(client QueueClient, opts TrackerOptions, logger zerolog.Logger) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.BatchPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		client:   client,
		interval: opts.PollInterval,
		clock:    opts.Clock,
		logger:   logger.With().Str("component", "batch_tracker").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[domain.JobKind]*jobEntry),
	}
	for _, kind := range domain.AllJobKinds() {
		t.jobs[kind] = &jobEntry{job: domain.IdleJob(kind), listeners: make(map[int]Listener)}
	}
	return t
}

func (t *Tracker) entry(kind domain.JobKind) (*jobEntry, error) {
	e, ok := t.jobs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", inkerrors.ErrUnknownJobKind, kind)
	}
	return e, nil
}

// Snapshot returns the current state of a job kind.
func (t *Tracker) Snapshot(kind domain.JobKind) (domain.BatchJob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.entry(kind)
	if err != nil {
		return domain.BatchJob{}, err
	}
	return e.job.Clone(), nil
}

// Snapshots returns the current state of every job kind in catalog order.
func (t *Tracker) Snapshots() []domain.BatchJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.BatchJob, 0, len(t.jobs))
	for _, kind := range domain.AllJobKinds() {
		out = append(out, t.jobs[kind].job.Clone())
	}
	return out
}

// Subscribe registers fn for state changes of kind. The returned function
// removes the subscription and is safe to call more than once.
func (t *Tracker) Subscribe(kind domain.JobKind, fn Listener) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.entry(kind)
	if err != nil {
		return nil, err
	}
	id := t.nextID
	t.nextID++
	e.listeners[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(e.listeners, id)
	}, nil
}

// Start submits a job for kind, kicks the queue, and begins polling.
// Starting a kind that is already submitting, polling, or cancelling returns
// the current snapshot without submitting again.
func (t *Tracker) Start(ctx context.Context, kind domain.JobKind, opts StartOptions) (domain.BatchJob, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.BatchJob{}, err
	}

	t.mu.Lock()
	e, err := t.entry(kind)
	if err != nil {
		t.mu.Unlock()
		return domain.BatchJob{}, err
	}
	if e.job.State.IsActive() {
		snap := e.job.Clone()
		t.mu.Unlock()
		t.logger.Debug().Str("kind", kind.String()).Str("state", snap.State.String()).Msg("start ignored, job already active")
		return snap, nil
	}
	e.job.State = domain.JobStateSubmitting
	e.job.Outcome = domain.JobOutcomeNone
	t.publishLocked(e)
	t.mu.Unlock()
	t.flush(e)

	t.logger.Info().Str("kind", kind.String()).Str("preferred_service", opts.PreferredService).Msg("submitting batch job")

	if err := t.client.Submit(ctx, kind, opts.PreferredService); err != nil {
		t.mu.Lock()
		e.job = domain.IdleJob(kind)
		t.publishLocked(e)
		t.mu.Unlock()
		t.flush(e)
		return domain.BatchJob{}, inkerrors.Wrapf(err, "start %s", kind)
	}

	t.kickQueue(kind)

	t.mu.Lock()
	// A cancel issued during submit owns the state from here on.
	if e.job.State == domain.JobStateSubmitting {
		e.job.State = domain.JobStatePolling
	}
	if e.job.State.IsActive() {
		t.startLoopLocked(kind, e)
	}
	t.publishLocked(e)
	snap := e.job.Clone()
	t.mu.Unlock()
	t.flush(e)
	return snap, nil
}

// kickQueue fires the run-queue signal without waiting for it.
func (t *Tracker) kickQueue(kind domain.JobKind) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.client.RunQueue(t.ctx, kind); err != nil {
			t.logger.Warn().Err(err).Str("kind", kind.String()).Msg("run-queue kick failed")
		}
	}()
}

// Poll fetches the counters for kind once and applies them. Fetch failures
// degrade the kind to the idle snapshot and are not returned. A poll cut short
// by ctx leaves the state untouched. A poll that
// observes in-flight work for an idle kind starts the polling loop. If a poll
// for kind is already running, the current snapshot is returned.
func (t *Tracker) Poll(ctx context.Context, kind domain.JobKind) (domain.BatchJob, error) {
	t.mu.Lock()
	e, err := t.entry(kind)
	t.mu.Unlock()
	if err != nil {
		return domain.BatchJob{}, err
	}

	snap, _ := t.pollOnce(ctx, kind, e, true)
	return snap, nil
}

// pollOnce performs one sequential poll. It reports whether work remains in
// flight. startLoop starts the kind's polling loop when work is observed.
func (t *Tracker) pollOnce(ctx context.Context, kind domain.JobKind, e *jobEntry, startLoop bool) (domain.BatchJob, bool) {
	t.mu.Lock()
	if e.polling {
		snap := e.job.Clone()
		active := snap.State == domain.JobStatePolling || snap.State == domain.JobStateCancelling
		t.mu.Unlock()
		return snap, active
	}
	e.polling = true
	t.mu.Unlock()

	status, err := t.client.Count(ctx, kind)

	t.mu.Lock()
	e.polling = false
	if err != nil && ctx.Err() != nil {
		snap := e.job.Clone()
		active := snap.State == domain.JobStatePolling || snap.State == domain.JobStateCancelling
		t.mu.Unlock()
		t.logger.Debug().Err(err).Str("kind", kind.String()).Msg("count abandoned by caller")
		return snap, active
	}
	if err != nil {
		t.logger.Debug().Err(err).Str("kind", kind.String()).Msg("count fetch failed, treating as idle")
		e.job = domain.IdleJob(kind)
	} else {
		t.applyLocked(e, status)
	}
	active := e.job.State == domain.JobStatePolling || e.job.State == domain.JobStateCancelling
	if active && startLoop {
		t.startLoopLocked(kind, e)
	}
	t.publishLocked(e)
	snap := e.job.Clone()
	t.mu.Unlock()
	t.flush(e)
	return snap, active
}

// applyLocked folds a count response into the kind's state.
func (t *Tracker) applyLocked(e *jobEntry, status domain.BatchStatus) {
	job := &e.job
	inFlight := status.InFlight()

	switch job.State {
	case domain.JobStateIdle, domain.JobStateComplete:
		if !inFlight {
			// Nothing running: keep the state, refresh the eligibility counters.
			job.TotalEligible = status.TotalEligible
			job.TotalMissing = status.TotalMissing
			if job.State == domain.JobStateComplete {
				t.copyStatus(job, status)
			}
			return
		}
		// Work submitted elsewhere or by an earlier session.
		job.State = domain.JobStatePolling
		job.Outcome = domain.JobOutcomeNone
		t.copyStatus(job, status)

	case domain.JobStateSubmitting, domain.JobStatePolling:
		t.copyStatus(job, status)
		if !inFlight && job.State == domain.JobStatePolling {
			job.State = domain.JobStateComplete
			job.Outcome = domain.JobOutcomeCompleted
			t.logger.Info().
				Str("kind", job.Kind.String()).
				Int("complete", job.ActionsComplete).
				Int("failed", job.ActionsFailed).
				Msg("batch job complete")
		}

	case domain.JobStateCancelling:
		if inFlight {
			t.copyStatus(job, status)
			return
		}
		kind := job.Kind
		e.job = domain.IdleJob(kind)
		e.job.TotalEligible = status.TotalEligible
		e.job.TotalMissing = status.TotalMissing
		e.job.Outcome = domain.JobOutcomeCancelled
		t.logger.Info().Str("kind", kind.String()).Msg("batch job cancelled")
	}
}

func (t *Tracker) copyStatus(job *domain.BatchJob, status domain.BatchStatus) {
	job.BatchCounts = status.BatchCounts
	job.FailedItems = append([]domain.FailedItem{}, status.FailedItems...)
	if status.LastUsedService != "" {
		job.LastUsedService = status.LastUsedService
	}
}

// startLoopLocked starts the kind's polling loop unless one is running.
func (t *Tracker) startLoopLocked(kind domain.JobKind, e *jobEntry) {
	if e.looping || t.closed {
		return
	}
	e.looping = true
	t.wg.Add(1)
	go t.loop(kind, e)
}

func (t *Tracker) loop(kind domain.JobKind, e *jobEntry) {
	defer t.wg.Done()

	for {
		_, active := t.pollOnce(t.ctx, kind, e, false)
		if !active {
			t.mu.Lock()
			// A cancel or resume may have revived the kind while the poll ran.
			revived := e.job.State == domain.JobStatePolling || e.job.State == domain.JobStateCancelling
			if !revived {
				e.looping = false
			}
			t.mu.Unlock()
			if !revived {
				return
			}
		}
		if err := ctxutil.Wait(t.ctx, t.clock.After(t.interval)); err != nil {
			t.mu.Lock()
			e.looping = false
			t.mu.Unlock()
			return
		}
	}
}

// Cancel asks the queue to cancel kind. The request is advisory: the kind
// stays cancelling until a later poll observes the queue drained.
//
// An idle or complete kind is polled first, since its work may have been
// submitted by another session. If nothing is in flight, Cancel returns the
// snapshot without contacting the queue. If the cancel request fails, the
// kind returns to the state it had before and the error is returned.
func (t *Tracker) Cancel(ctx context.Context, kind domain.JobKind) (domain.BatchJob, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.BatchJob{}, err
	}

	t.mu.Lock()
	e, err := t.entry(kind)
	if err != nil {
		t.mu.Unlock()
		return domain.BatchJob{}, err
	}
	settled := !e.job.State.IsActive()
	t.mu.Unlock()

	if settled {
		// The loop starts once the cancel request has been sent.
		snap, _ := t.pollOnce(ctx, kind, e, false)
		if err := ctxutil.Canceled(ctx); err != nil {
			return domain.BatchJob{}, err
		}
		if !snap.State.IsActive() {
			t.logger.Debug().Str("kind", kind.String()).Msg("cancel ignored, nothing in flight")
			return snap, nil
		}
	}

	t.mu.Lock()
	prev := e.job.State
	e.job.State = domain.JobStateCancelling
	t.publishLocked(e)
	t.mu.Unlock()
	t.flush(e)

	t.logger.Info().Str("kind", kind.String()).Str("previous_state", prev.String()).Msg("cancelling batch job")
	cancelErr := t.client.Cancel(ctx, kind)

	t.mu.Lock()
	if cancelErr != nil && e.job.State == domain.JobStateCancelling {
		e.job.State = prev
	}
	if e.job.State == domain.JobStatePolling || e.job.State == domain.JobStateCancelling {
		t.startLoopLocked(kind, e)
	}
	t.publishLocked(e)
	snap := e.job.Clone()
	t.mu.Unlock()
	t.flush(e)

	if cancelErr != nil {
		return snap, inkerrors.Wrapf(cancelErr, "cancel %s", kind)
	}
	return snap, nil
}

// RefreshAll polls every job kind concurrently and returns the snapshots in
// catalog order. Polls for one kind remain sequential.
func (t *Tracker) RefreshAll(ctx context.Context) ([]domain.BatchJob, error) {
	kinds := domain.AllJobKinds()
	out := make([]domain.BatchJob, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			snap, err := t.Poll(gctx, kind)
			if err != nil {
				return err
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close stops every polling loop and waits for background work to finish.
// Server-side jobs keep running.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()
	t.wg.Wait()
}

// publishLocked bumps the entry version. Call flush after unlocking.
func (t *Tracker) publishLocked(e *jobEntry) {
	e.version++
}

// flush delivers the latest snapshot to listeners, skipping stale versions.
func (t *Tracker) flush(e *jobEntry) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	t.mu.Lock()
	if e.version <= e.delivered {
		t.mu.Unlock()
		return
	}
	e.delivered = e.version
	snap := e.job.Clone()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, id := range sortedIDs(e.listeners) {
		listeners = append(listeners, e.listeners[id])
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.Clone())
	}
}

func sortedIDs(m map[int]Listener) []int {
	return slices.Sorted(maps.Keys(m))
}
