// Package repository retains finished evaluations in memory.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/domain/statistic"
)

const defaultCapacity = 64

// Evaluation is a finished evaluation of one feature.
type Evaluation struct {
	ID       uuid.UUID
	Feature  string
	Unit     string
	Started  time.Time
	Finished time.Time
	Duration time.Duration
	Results  *statistic.Results
}

// Store is a bounded, in-memory record of finished evaluations. Once full,
// saving evicts the oldest evaluation. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	capacity int
	byID     map[uuid.UUID]*Evaluation
	order    []uuid.UUID // oldest first
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[uuid.UUID]*Evaluation, s.capacity)
	s.order = make([]uuid.UUID, 0, s.capacity)
	return s
}

// Save retains an evaluation. Saving an id again replaces it and makes it the newest.
func (s *Store) Save(ctx context.Context, e *Evaluation) error {
	if e == nil || e.Results == nil {
		return ErrNilResults
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[e.ID]; ok {
		s.remove(e.ID)
	}
	for len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	return nil
}

func (s *Store) remove(id uuid.UUID) {
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Get returns an evaluation by id.
// Returns ErrNotFound if it was never saved or has been evicted.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Recent returns up to n evaluations, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*Evaluation, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.order) {
		n = len(s.order)
	}
	out := make([]*Evaluation, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

// Count returns the number of retained evaluations.
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
