// Package jobs tracks the status of video synthesis jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"newsreel/internal/failure"
)

type State string

const (
	StatePending            State = "pending"
	StateSynthesizingAudio  State = "synthesizing_audio"
	StateAligningCaptions   State = "aligning_captions"
	StateSchedulingOverlays State = "scheduling_overlays"
	StateCompositing        State = "compositing"
	StateReady              State = "ready"
	StateError              State = "error"
)

// Terminal reports whether no further transitions are expected.
func (s State) Terminal() bool {
	return s == StateReady || s == StateError
}

var ErrNotFound = errors.New("job not found")

type Status struct {
	JobID     string `json:"job_id"`
	State     State  `json:"state"`
	Progress  int    `json:"progress"`
	Message   string `json:"message,omitempty"`
	VideoPath string `json:"video_path,omitempty"`
}

type entry struct {
	status Status
	cancel context.CancelFunc
}

// Store is safe for concurrent use. Readers never observe a partially
// written Status.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*entry)}
}

// Create registers a pending job. The store takes ownership of cancel and
// calls it once the job reaches a terminal state or is cancelled.
func (s *Store) Create(cancel context.CancelFunc) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[id] = &entry{
		status: Status{JobID: id, State: StatePending},
		cancel: cancel,
	}
	return id
}

// Update moves a running job forward. Progress never decreases and updates
// to a finished job are ignored.
func (s *Store) Update(id string, state State, progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.status.State.Terminal() {
		return nil
	}

	e.status.State = state
	e.status.Progress = max(e.status.Progress, min(progress, 99))
	e.status.Message = message
	return nil
}

func (s *Store) Finish(id, videoPath, message string) error {
	return s.terminate(id, func(st *Status) {
		st.State = StateReady
		st.Progress = 100
		st.VideoPath = videoPath
		st.Message = message
	})
}

// Fail records err's user-facing message. The full error belongs in logs.
func (s *Store) Fail(id string, err error) error {
	return s.terminate(id, func(st *Status) {
		st.State = StateError
		st.Message = failure.UserMessage(err)
	})
}

// Cancel stops a running job. The pipeline observes the cancelled context and
// reports the failure through Fail.
func (s *Store) Cancel(id string) error {
	s.mu.RLock()
	e, ok := s.jobs[id]
	var cancel context.CancelFunc
	if ok && !e.status.State.Terminal() {
		cancel = e.cancel
	}
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Store) terminate(id string, apply func(*Status)) error {
	s.mu.Lock()
	e, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.status.State.Terminal() {
		s.mu.Unlock()
		return nil
	}
	apply(&e.status)
	cancel := e.cancel
	e.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Store) Get(id string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.status, nil
}

func (s *Store) List() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, e.status)
	}
	return out
}
