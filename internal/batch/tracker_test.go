package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/clock"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/testutil"
)

// fakeQueue is a scripted QueueClient. Each Count consumes the next scripted
// status; the last one repeats.
type fakeQueue struct {
	mu sync.Mutex

	script    []domain.BatchStatus
	countErr  error
	submitErr error
	cancelErr error
	gate      chan struct{}

	// submitGate holds Submit until closed; submitEntered is signalled first.
	submitGate    chan struct{}
	submitEntered chan struct{}

	counts, submits, runs, cancels int
	inCount, maxInCount            int
}

func (f *fakeQueue) Count(ctx context.Context, _ domain.JobKind) (domain.BatchStatus, error) {
	f.mu.Lock()
	f.counts++
	f.inCount++
	if f.inCount > f.maxInCount {
		f.maxInCount = f.inCount
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inCount--
	if err := ctx.Err(); err != nil {
		return domain.BatchStatus{}, fmt.Errorf("%w: count: %s", inkerrors.ErrBatchTransport, err.Error())
	}
	if f.countErr != nil {
		return domain.BatchStatus{}, f.countErr
	}
	if len(f.script) == 0 {
		return domain.BatchStatus{FailedItems: []domain.FailedItem{}}, nil
	}
	st := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return st, nil
}

func (f *fakeQueue) Submit(ctx context.Context, _ domain.JobKind, _ string) error {
	f.mu.Lock()
	f.submits++
	gate, entered, err := f.submitGate, f.submitEntered, f.submitErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	return err
}

func (f *fakeQueue) RunQueue(context.Context, domain.JobKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return nil
}

func (f *fakeQueue) Cancel(context.Context, domain.JobKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return f.cancelErr
}

func (f *fakeQueue) stats() (counts, submits, runs, cancels, maxInCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts, f.submits, f.runs, f.cancels, f.maxInCount
}

func (f *fakeQueue) setScript(script ...domain.BatchStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = script
}

func status(missing, total, complete, pending, running, failed int) domain.BatchStatus {
	return domain.BatchStatus{
		BatchCounts: domain.BatchCounts{
			TotalEligible:   100,
			TotalMissing:    missing,
			ActionsTotal:    total,
			ActionsComplete: complete,
			ActionsPending:  pending,
			ActionsRunning:  running,
			ActionsFailed:   failed,
		},
		FailedItems:     []domain.FailedItem{},
		LastUsedService: "gemini",
	}
}

func newTestTracker(t *testing.T, q QueueClient) *Tracker {
	t.Helper()
	tr := NewTracker(q, TrackerOptions{PollInterval: time.Millisecond, Clock: clock.Fixed{}}, zerolog.Nop())
	t.Cleanup(tr.Close)
	return tr
}

func stateOf(t *testing.T, tr *Tracker, kind domain.JobKind) domain.JobState {
	t.Helper()
	snap, err := tr.Snapshot(kind)
	require.NoError(t, err)
	return snap.State
}

func TestTracker_InitialState(t *testing.T) {
	tr := newTestTracker(t, &fakeQueue{})

	for _, job := range tr.Snapshots() {
		assert.Equal(t, domain.JobStateIdle, job.State)
		assert.Equal(t, domain.BatchCounts{}, job.BatchCounts)
		assert.Zero(t, job.CompletionRatio())
	}

	_, err := tr.Snapshot("bogus")
	require.ErrorIs(t, err, inkerrors.ErrUnknownJobKind)
}

func TestTracker_RunsToCompletion(t *testing.T) {
	q := &fakeQueue{}
	q.setScript(
		status(40, 40, 10, 0, 30, 0),
		status(40, 40, 25, 0, 15, 0),
		status(40, 40, 40, 0, 0, 0),
	)
	tr := newTestTracker(t, q)

	var mu sync.Mutex
	var seen []domain.BatchJob
	unsubscribe, err := tr.Subscribe(domain.JobKindImageAltText, func(job domain.BatchJob) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job)
	})
	require.NoError(t, err)
	defer unsubscribe()

	snap, err := tr.Start(context.Background(), domain.JobKindImageAltText, StartOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, domain.JobStateIdle, snap.State)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].State == domain.JobStateComplete
	}, 2*time.Second, time.Millisecond)

	final, err := tr.Snapshot(domain.JobKindImageAltText)
	require.NoError(t, err)
	assert.Equal(t, domain.JobOutcomeCompleted, final.Outcome)
	assert.Equal(t, 40, final.ActionsComplete)
	assert.Zero(t, final.ActionsRunning)
	assert.InDelta(t, 1.0, final.CompletionRatio(), 0.0001)
	assert.Equal(t, "gemini", final.LastUsedService)

	counts, submits, _, _, _ := q.stats()
	assert.Equal(t, 3, counts)
	assert.Equal(t, 1, submits)
	assert.Eventually(t, func() bool {
		_, _, runs, _, _ := q.stats()
		return runs == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	lastRunning, lastComplete := 40, 0
	for _, job := range seen {
		assert.True(t, job.Consistent(), "counters must add up: %+v", job.BatchCounts)
		if job.ActionsTotal == 0 {
			continue
		}
		assert.LessOrEqual(t, job.ActionsRunning, lastRunning)
		assert.GreaterOrEqual(t, job.ActionsComplete, lastComplete)
		lastRunning, lastComplete = job.ActionsRunning, job.ActionsComplete
	}
}

func TestTracker_StartIsIdempotent(t *testing.T) {
	q := &fakeQueue{gate: make(chan struct{})}
	q.setScript(status(5, 5, 0, 5, 0, 0), status(5, 5, 5, 0, 0, 0))
	tr := newTestTracker(t, q)
	ctx := context.Background()

	_, err := tr.Start(ctx, domain.JobKindSEOTitle, StartOptions{})
	require.NoError(t, err)

	// The loop is parked inside Count; a second start and a manual poll must
	// not submit again or issue an overlapping count.
	require.Eventually(t, func() bool {
		counts, _, _, _, _ := q.stats()
		return counts == 1
	}, time.Second, time.Millisecond)

	snap, err := tr.Start(ctx, domain.JobKindSEOTitle, StartOptions{PreferredService: "openai"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePolling, snap.State)

	snap, err = tr.Poll(ctx, domain.JobKindSEOTitle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePolling, snap.State)

	close(q.gate)

	require.Eventually(t, func() bool {
		return stateOf(t, tr, domain.JobKindSEOTitle) == domain.JobStateComplete
	}, 2*time.Second, time.Millisecond)

	_, submits, _, _, maxInCount := q.stats()
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, maxInCount)
}

func TestTracker_CountFailureDegradesToIdle(t *testing.T) {
	t.Run("manual poll", func(t *testing.T) {
		q := &fakeQueue{countErr: inkerrors.ErrBatchTransport}
		tr := newTestTracker(t, q)

		snap, err := tr.Poll(context.Background(), domain.JobKindSEOMetaDescription)
		require.NoError(t, err)
		assert.Equal(t, domain.IdleJob(domain.JobKindSEOMetaDescription), snap)
	})

	t.Run("during polling", func(t *testing.T) {
		q := &fakeQueue{countErr: testutil.ErrMockMalformed}
		tr := newTestTracker(t, q)

		_, err := tr.Start(context.Background(), domain.JobKindImageAltText, StartOptions{})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return stateOf(t, tr, domain.JobKindImageAltText) == domain.JobStateIdle
		}, 2*time.Second, time.Millisecond)

		snap, err := tr.Snapshot(domain.JobKindImageAltText)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchCounts{}, snap.BatchCounts)
		assert.Empty(t, snap.FailedItems)
	})
}

func TestTracker_SubmitFailure(t *testing.T) {
	q := &fakeQueue{submitErr: inkerrors.ErrBatchTransport}
	tr := newTestTracker(t, q)

	_, err := tr.Start(context.Background(), domain.JobKindSEOTitle, StartOptions{})
	require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
	assert.Equal(t, domain.JobStateIdle, stateOf(t, tr, domain.JobKindSEOTitle))

	counts, _, runs, _, _ := q.stats()
	assert.Zero(t, counts)
	assert.Zero(t, runs)
}

func TestTracker_Cancel(t *testing.T) {
	t.Run("server drains then kind goes idle", func(t *testing.T) {
		q := &fakeQueue{gate: make(chan struct{})}
		q.setScript(status(10, 10, 2, 6, 2, 0))
		tr := newTestTracker(t, q)
		ctx := context.Background()

		_, err := tr.Start(ctx, domain.JobKindImageAltText, StartOptions{})
		require.NoError(t, err)

		snap, err := tr.Cancel(ctx, domain.JobKindImageAltText)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStateCancelling, snap.State)

		// Still draining after the cancel request: stays cancelling.
		q.setScript(status(10, 10, 2, 0, 1, 0), status(8, 0, 0, 0, 0, 0))
		close(q.gate)

		require.Eventually(t, func() bool {
			return stateOf(t, tr, domain.JobKindImageAltText) == domain.JobStateIdle
		}, 2*time.Second, time.Millisecond)

		final, err := tr.Snapshot(domain.JobKindImageAltText)
		require.NoError(t, err)
		assert.Equal(t, domain.JobOutcomeCancelled, final.Outcome)
		assert.Zero(t, final.ActionsTotal)
		assert.Equal(t, 8, final.TotalMissing)

		_, _, _, cancels, _ := q.stats()
		assert.Equal(t, 1, cancels)
	})

	t.Run("failed cancel returns to polling", func(t *testing.T) {
		q := &fakeQueue{gate: make(chan struct{}), cancelErr: inkerrors.ErrBatchTransport}
		q.setScript(status(10, 10, 2, 6, 2, 0))
		tr := newTestTracker(t, q)
		ctx := context.Background()

		_, err := tr.Start(ctx, domain.JobKindSEOTitle, StartOptions{})
		require.NoError(t, err)

		snap, err := tr.Cancel(ctx, domain.JobKindSEOTitle)
		require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
		assert.Equal(t, domain.JobStatePolling, snap.State)

		q.setScript(status(0, 10, 10, 0, 0, 0))
		close(q.gate)
		require.Eventually(t, func() bool {
			return stateOf(t, tr, domain.JobKindSEOTitle) == domain.JobStateComplete
		}, 2*time.Second, time.Millisecond)
	})

	t.Run("failed cancel of work seen from another session", func(t *testing.T) {
		q := &fakeQueue{cancelErr: inkerrors.ErrBatchTransport}
		q.setScript(status(10, 10, 2, 6, 2, 0), status(0, 10, 10, 0, 0, 0))
		tr := newTestTracker(t, q)

		snap, err := tr.Cancel(context.Background(), domain.JobKindSEOTitle)
		require.ErrorIs(t, err, inkerrors.ErrBatchTransport)
		assert.Equal(t, domain.JobStatePolling, snap.State)

		require.Eventually(t, func() bool {
			return stateOf(t, tr, domain.JobKindSEOTitle) == domain.JobStateComplete
		}, 2*time.Second, time.Millisecond)
	})

	t.Run("idle kind with nothing in flight is left alone", func(t *testing.T) {
		q := &fakeQueue{cancelErr: inkerrors.ErrBatchTransport}
		q.setScript(status(4, 0, 0, 0, 0, 0))
		tr := newTestTracker(t, q)

		snap, err := tr.Cancel(context.Background(), domain.JobKindSEOTitle)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStateIdle, snap.State)
		assert.Equal(t, domain.JobOutcomeNone, snap.Outcome)
		assert.Equal(t, 4, snap.TotalMissing)

		// No loop may have started: the state stays idle.
		time.Sleep(20 * time.Millisecond)
		final, err := tr.Snapshot(domain.JobKindSEOTitle)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStateIdle, final.State)
		assert.Equal(t, domain.JobOutcomeNone, final.Outcome)

		counts, _, _, cancels, _ := q.stats()
		assert.Equal(t, 1, counts)
		assert.Zero(t, cancels)
	})

	t.Run("complete kind keeps its outcome", func(t *testing.T) {
		q := &fakeQueue{}
		q.setScript(status(10, 10, 5, 5, 0, 0), status(0, 10, 10, 0, 0, 0))
		tr := newTestTracker(t, q)
		ctx := context.Background()

		_, err := tr.Start(ctx, domain.JobKindImageAltText, StartOptions{})
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return stateOf(t, tr, domain.JobKindImageAltText) == domain.JobStateComplete
		}, 2*time.Second, time.Millisecond)

		snap, err := tr.Cancel(ctx, domain.JobKindImageAltText)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStateComplete, snap.State)
		assert.Equal(t, domain.JobOutcomeCompleted, snap.Outcome)

		_, _, _, cancels, _ := q.stats()
		assert.Zero(t, cancels)
	})

	t.Run("cancel during submit is kept", func(t *testing.T) {
		q := &fakeQueue{submitGate: make(chan struct{}), submitEntered: make(chan struct{}, 1)}
		q.setScript(status(10, 10, 0, 10, 0, 0))
		tr := newTestTracker(t, q)
		ctx := context.Background()
		kind := domain.JobKindSEOMetaDescription

		started := make(chan domain.BatchJob, 1)
		go func() {
			snap, err := tr.Start(ctx, kind, StartOptions{})
			assert.NoError(t, err)
			started <- snap
		}()
		<-q.submitEntered

		snap, err := tr.Cancel(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStateCancelling, snap.State)

		close(q.submitGate)
		startSnap := <-started
		assert.Equal(t, domain.JobStateCancelling, startSnap.State)

		q.setScript(status(6, 0, 0, 0, 0, 0))
		require.Eventually(t, func() bool {
			job, err := tr.Snapshot(kind)
			return err == nil && job.State == domain.JobStateIdle
		}, 2*time.Second, time.Millisecond)

		final, err := tr.Snapshot(kind)
		require.NoError(t, err)
		assert.Equal(t, domain.JobOutcomeCancelled, final.Outcome)
	})
}

func TestTracker_PollAbandonedByCallerKeepsState(t *testing.T) {
	q := &fakeQueue{}
	q.setScript(status(10, 10, 2, 6, 2, 0))
	tr := NewTracker(q, TrackerOptions{PollInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(tr.Close)
	kind := domain.JobKindSEOTitle

	_, err := tr.Start(context.Background(), kind, StartOptions{})
	require.NoError(t, err)
	// The loop polls once right away, then sleeps for the interval.
	require.Eventually(t, func() bool {
		counts, _, _, _, _ := q.stats()
		return counts >= 1
	}, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		job, err := tr.Snapshot(kind)
		return err == nil && job.ActionsTotal == 10
	}, 2*time.Second, time.Millisecond)

	var (
		mu     sync.Mutex
		states []domain.JobState
	)
	unsubscribe, err := tr.Subscribe(kind, func(job domain.BatchJob) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, job.State)
	})
	require.NoError(t, err)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := tr.Poll(ctx, kind)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePolling, snap.State)
	assert.Equal(t, 6, snap.ActionsPending)

	final, err := tr.Snapshot(kind)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePolling, final.State)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, states, domain.JobStateIdle)
}

func TestTracker_ResumeOnObserve(t *testing.T) {
	q := &fakeQueue{}
	q.setScript(status(20, 20, 5, 10, 5, 0), status(20, 20, 20, 0, 0, 0))
	tr := newTestTracker(t, q)

	snap, err := tr.Poll(context.Background(), domain.JobKindSEOMetaDescription)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatePolling, snap.State)
	assert.Equal(t, 5, snap.ActionsComplete)

	require.Eventually(t, func() bool {
		return stateOf(t, tr, domain.JobKindSEOMetaDescription) == domain.JobStateComplete
	}, 2*time.Second, time.Millisecond)

	_, submits, _, _, _ := q.stats()
	assert.Zero(t, submits)
}

func TestTracker_IdlePollRefreshesEligibility(t *testing.T) {
	q := &fakeQueue{}
	q.setScript(status(42, 0, 0, 0, 0, 0))
	tr := newTestTracker(t, q)

	snap, err := tr.Poll(context.Background(), domain.JobKindImageAltText)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateIdle, snap.State)
	assert.Equal(t, 42, snap.TotalMissing)
	assert.Zero(t, snap.ActionsTotal)
}

func TestTracker_RefreshAll(t *testing.T) {
	q := &fakeQueue{}
	tr := newTestTracker(t, q)

	jobs, err := tr.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, len(domain.AllJobKinds()))
	for i, kind := range domain.AllJobKinds() {
		assert.Equal(t, kind, jobs[i].Kind)
		assert.Equal(t, domain.JobStateIdle, jobs[i].State)
	}

	counts, _, _, _, _ := q.stats()
	assert.Equal(t, len(domain.AllJobKinds()), counts)
}

func TestTracker_Unsubscribe(t *testing.T) {
	q := &fakeQueue{}
	tr := newTestTracker(t, q)

	var calls int
	var mu sync.Mutex
	unsubscribe, err := tr.Subscribe(domain.JobKindSEOTitle, func(domain.BatchJob) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = tr.Poll(context.Background(), domain.JobKindSEOTitle)
	require.NoError(t, err)
	unsubscribe()
	unsubscribe()
	_, err = tr.Poll(context.Background(), domain.JobKindSEOTitle)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)

	_, err = tr.Subscribe("bogus", func(domain.BatchJob) {})
	require.ErrorIs(t, err, inkerrors.ErrUnknownJobKind)
}
