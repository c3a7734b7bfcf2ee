// Package scheduler
package scheduler

import (
	"sync"
	"time"

	"github.com/amirphl/AutoSEM/utils"
)

// failureWindow is how far back FailuresLast24h looks.
const failureWindow = 24 * time.Hour

// JobRunState is the health record for one scheduled job. It lives in
// process memory only; the durable trail is the activity log.
type JobRunState struct {
	Name                string     `json:"name"`
	Running             bool       `json:"running"`
	LastRunAt           *time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	FailuresLast24h     int        `json:"failures_last_24h"`
	TotalRuns           int64      `json:"total_runs"`
	TotalFailures       int64      `json:"total_failures"`
}

// jobStateTracker guards the per-job run states. failureTimes keeps the
// timestamps of recent failures so the trailing-24h count survives streak
// resets.
type jobStateTracker struct {
	mu           sync.Mutex
	states       map[string]*JobRunState
	failureTimes map[string][]time.Time
	order        []string
}

func newJobStateTracker() *jobStateTracker {
	return &jobStateTracker{
		states:       map[string]*JobRunState{},
		failureTimes: map[string][]time.Time{},
	}
}

func (t *jobStateTracker) register(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[name]; !ok {
		t.states[name] = &JobRunState{Name: name}
		t.order = append(t.order, name)
	}
}

func (t *jobStateTracker) markStarted(name string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.states[name]
	state.Running = true
	state.LastRunAt = &at
	state.TotalRuns++
}

// markFinished records the outcome and returns the consecutive failure count
// after this run.
func (t *jobStateTracker) markFinished(name string, at time.Time, err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.states[name]
	state.Running = false
	if err != nil {
		state.LastError = err.Error()
		state.ConsecutiveFailures++
		state.TotalFailures++
		t.failureTimes[name] = pruneBefore(append(t.failureTimes[name], at), at.Add(-failureWindow))
	} else {
		state.LastError = ""
		state.ConsecutiveFailures = 0
		state.LastSuccessAt = &at
	}
	return state.ConsecutiveFailures
}

// snapshot returns a copy of every job state in registration order.
func (t *jobStateTracker) snapshot() []JobRunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := utils.UTCNow().Add(-failureWindow)
	out := make([]JobRunState, 0, len(t.order))
	for _, name := range t.order {
		t.failureTimes[name] = pruneBefore(t.failureTimes[name], cutoff)
		state := *t.states[name]
		state.FailuresLast24h = len(t.failureTimes[name])
		out = append(out, state)
	}
	return out
}

// pruneBefore drops timestamps older than the cutoff. Times arrive in order,
// so a single scan from the front is enough.
func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}
