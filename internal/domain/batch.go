package domain

import (
	"fmt"

	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// JobKind names a server-side bulk operation.
type JobKind string

// Job kinds supported by the batch queue.
const (
	JobKindImageAltText       JobKind = "image_alt_text"
	JobKindSEOTitle           JobKind = "seo_title"
	JobKindSEOMetaDescription JobKind = "seo_meta_description"
)

// AllJobKinds returns every supported job kind.
func AllJobKinds() []JobKind {
	return []JobKind{JobKindImageAltText, JobKindSEOTitle, JobKindSEOMetaDescription}
}

// String returns the string representation of the JobKind.
func (k JobKind) String() string {
	return string(k)
}

// IsValid checks if the job kind is supported.
func (k JobKind) IsValid() bool {
	switch k {
	case JobKindImageAltText, JobKindSEOTitle, JobKindSEOMetaDescription:
		return true
	}
	return false
}

// Feature returns the feature a job kind applies in bulk.
func (k JobKind) Feature() Feature {
	return Feature(k)
}

// ParseJobKind converts a raw string into a JobKind.
func ParseJobKind(s string) (JobKind, error) {
	k := JobKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", inkerrors.ErrUnknownJobKind, s)
	}
	return k, nil
}

// JobState is the client-side tracker state for a job kind.
//
//	idle -> submitting -> polling -> complete
//	                         |
//	                         +-> cancelling -> idle
type JobState string

// Job states.
const (
	JobStateIdle       JobState = "idle"
	JobStateSubmitting JobState = "submitting"
	JobStatePolling    JobState = "polling"
	JobStateComplete   JobState = "complete"
	JobStateCancelling JobState = "cancelling"
)

// String returns the string representation of the JobState.
func (s JobState) String() string {
	return string(s)
}

// IsActive reports whether a polling loop may be running in this state.
func (s JobState) IsActive() bool {
	return s == JobStateSubmitting || s == JobStatePolling || s == JobStateCancelling
}

// JobOutcome records how a finished job ended.
type JobOutcome string

// Job outcomes.
const (
	JobOutcomeNone      JobOutcome = ""
	JobOutcomeCompleted JobOutcome = "completed"
	JobOutcomeCancelled JobOutcome = "cancelled"
)

// FailedItem is one content item the batch job could not process.
type FailedItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BatchCounts are the counters reported by the queue for a job kind.
type BatchCounts struct {
	TotalEligible   int `json:"total_eligible"`
	TotalMissing    int `json:"total_missing"`
	ActionsTotal    int `json:"actions_total"`
	ActionsComplete int `json:"actions_complete"`
	ActionsPending  int `json:"actions_pending"`
	ActionsRunning  int `json:"actions_running"`
	ActionsFailed   int `json:"actions_failed"`
}

// Consistent reports whether the action counters add up to the total
// and none are negative.
func (c BatchCounts) Consistent() bool {
	if c.TotalEligible < 0 || c.TotalMissing < 0 || c.ActionsTotal < 0 ||
		c.ActionsComplete < 0 || c.ActionsPending < 0 || c.ActionsRunning < 0 || c.ActionsFailed < 0 {
		return false
	}
	return c.ActionsComplete+c.ActionsFailed+c.ActionsPending+c.ActionsRunning == c.ActionsTotal
}

// InFlight reports whether the queue still has pending or running actions.
func (c BatchCounts) InFlight() bool {
	return c.ActionsPending > 0 || c.ActionsRunning > 0
}

// BatchStatus is one count response from the queue.
type BatchStatus struct {
	BatchCounts

	FailedItems     []FailedItem `json:"failed_items"`
	LastUsedService string       `json:"last_used_service"`
}

// BatchJob is a snapshot of one bulk operation as seen by the tracker.
// Snapshots are values; the tracker never hands out shared mutable state.
type BatchJob struct {
	Kind    JobKind    `json:"kind"`
	State   JobState   `json:"state"`
	Outcome JobOutcome `json:"outcome,omitempty"`

	BatchCounts

	FailedItems     []FailedItem `json:"failed_items"`
	LastUsedService string       `json:"last_used_service"`
}

// IdleJob returns the all-zero idle snapshot for kind.
func IdleJob(kind JobKind) BatchJob {
	return BatchJob{Kind: kind, State: JobStateIdle, FailedItems: []FailedItem{}}
}

// CompletionRatio returns ActionsComplete / ActionsTotal, or 0 when there are no actions.
func (j BatchJob) CompletionRatio() float64 {
	if j.ActionsTotal == 0 {
		return 0
	}
	return float64(j.ActionsComplete) / float64(j.ActionsTotal)
}

// Clone returns a deep copy of the snapshot.
func (j BatchJob) Clone() BatchJob {
	out := j
	out.FailedItems = make([]FailedItem, len(j.FailedItems))
	copy(out.FailedItems, j.FailedItems)
	return out
}
