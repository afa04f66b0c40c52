package remotesync

import (
	"errors"
	"sync"
)

var (
	// ErrStaleResponse is returned when a newer request already settled the store.
	ErrStaleResponse = errors.New("stale response dropped")
	// ErrNotAuthenticated is the remote rejection for a missing or invalid caller identity.
	ErrNotAuthenticated = errors.New("Not authenticated")
)

// Phase is the lifecycle of the most recent remote call against a store.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// Sequencer hands out monotonically increasing tickets and decides whether a
// settled call may still be applied. The last-issued request wins.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	phase   Phase
}

// Begin issues the next ticket and moves the phase to pending.
func (q *Sequencer) Begin() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.issued++
	q.phase = PhasePending
	return q.issued
}

// Settle applies the outcome of ticket t. A success is applied when no newer
// ticket has been applied; a failure only when t is the newest ticket issued.
// apply runs under the sequencer lock and receives whether t is the newest.
func (q *Sequencer) Settle(t uint64, failed bool, apply func(latest bool)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t <= q.applied || (failed && t < q.issued) {
		return ErrStaleResponse
	}
	q.applied = t
	latest := t == q.issued
	if latest {
		if failed {
			q.phase = PhaseRejected
		} else {
			q.phase = PhaseFulfilled
		}
	}
	apply(latest)
	return nil
}

// Commit settles a remote write. Writes are never dropped: apply always runs,
// and older in-flight loads become stale once t is recorded.
func (q *Sequencer) Commit(t uint64, apply func(latest bool)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t > q.applied {
		q.applied = t
	}
	latest := t == q.issued
	if latest {
		q.phase = PhaseFulfilled
	}
	apply(latest)
}

// Phase returns the phase of the newest settled or pending ticket.
func (q *Sequencer) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.phase == "" {
		return PhaseIdle
	}
	return q.phase
}
