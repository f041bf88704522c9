// Package scheduler owns the snapshot save pipeline: a debounce timer that
// coalesces event bursts into one save, an unconditional heartbeat that
// bounds data loss on crash, and the shared restore/pause guard that keeps
// saves and auto-assignment out of bulk-mutation windows.
package scheduler

import (
	"context"
	"sync"
	"time"

	"tabspaces/internal/logging"
)

// SaveFunc captures and persists one snapshot
type SaveFunc func(ctx context.Context) error

// State is the explicit scheduling guard shared between the scheduler, the
// restore engine, and the event bridge. No ambient globals; one instance is
// owned by the serve loop and injected everywhere.
type State struct {
	mu         sync.Mutex
	restoring  bool
	pauseUntil time.Time
	now        func() time.Time
}

// NewState creates a State using the wall clock
func NewState() *State {
	return &State{now: time.Now}
}

// SetRestoring flips the restore re-entrancy flag
func (s *State) SetRestoring(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = v
}

// Restoring reports whether a restore run is in progress
func (s *State) Restoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoring
}

// PauseFor extends the pause window to at least d from now. Pause merges
// monotonically: overlapping requests never shorten an existing pause.
func (s *State) PauseFor(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.now().Add(d)
	if until.After(s.pauseUntil) {
		s.pauseUntil = until
	}
}

// ResumeNow collapses the pause window to the current instant, so work
// resumes immediately rather than waiting out the original future value.
func (s *State) ResumeNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseUntil = s.now()
}

// Paused reports whether the pause window is still open
func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.pauseUntil)
}

// Scheduler drives debounced and heartbeat snapshot saves
type Scheduler struct {
	state     *State
	save      SaveFunc
	debounce  time.Duration
	heartbeat time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Scheduler. state is shared with the restore engine and the
// event bridge.
func New(state *State, save SaveFunc, debounce, heartbeat time.Duration) *Scheduler {
	return &Scheduler{
		state:     state,
		save:      save,
		debounce:  debounce,
		heartbeat: heartbeat,
	}
}

// State exposes the shared guard
func (s *Scheduler) State() *State {
	return s.state
}

// Schedule (re)arms the debounce timer. Arming cancels any pending timer,
// so a burst of events coalesces into one save ~debounce after the last
// call. No-op while restoring or paused.
func (s *Scheduler) Schedule() {
	if s.state.Restoring() || s.state.Paused() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	// Re-check at fire time: a restore may have started since arming
	if s.state.Restoring() || s.state.Paused() {
		return
	}
	if err := s.save(context.Background()); err != nil {
		logging.Logger.Error("debounced snapshot save failed", "error", err)
	}
}

// Flush cancels any pending debounce timer and saves immediately. Used on
// process suspend and after a restore completes.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.save(ctx)
}

// RunHeartbeat saves on every heartbeat interval until ctx is done,
// independent of the debounce timer. Bounds data loss on crash to one
// interval.
func (s *Scheduler) RunHeartbeat(ctx context.Context) error {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.state.Restoring() || s.state.Paused() {
				continue
			}
			if err := s.save(ctx); err != nil {
				logging.Logger.Error("heartbeat snapshot save failed", "error", err)
			}
		}
	}
}
