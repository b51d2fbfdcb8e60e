package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a job id is unknown to the store.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned for a state machine edge that does not exist.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the job registry. Create registers a new job, Get returns a
// consistent snapshot, Update mutates one job under the store's lock, and
// Transition applies a validated status change.
type Store interface {
	Create(job Job) error
	Get(id string) (Job, error)
	Update(id string, fn func(*Job)) error
	Transition(id string, to Status) error
	List() []Job
}

// MemoryStore keeps jobs in a process-wide map. Jobs live until process
// restart; there is no eviction.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = &job
	return nil
}

// Get returns a snapshot copy so callers never observe a torn read of the
// transcript/minutes/error fields relative to the status.
func (s *MemoryStore) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

func (s *MemoryStore) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}

// Transition moves a job to the given status, rejecting edges the state
// machine does not allow.
func (s *MemoryStore) Transition(id string, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !ValidTransition(job.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, to)
	}

	job.Status = to
	job.UpdatedAt = time.Now()
	return nil
}

// List returns snapshots of all jobs, newest first.
func (s *MemoryStore) List() []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
