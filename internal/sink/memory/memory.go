// Package memory is an in-process sink that keeps every written event.
package memory

import (
	"context"
	"sync"

	"example.com/kakaoad/internal/domain"
)

type Sink struct {
	mu      sync.Mutex
	events  []domain.Event
	batches int
	notify  chan struct{}
}

func New() *Sink {
	return &Sink{notify: make(chan struct{}, 1)}
}

func (s *Sink) WriteBatch(_ context.Context, events []domain.Event) (int64, error) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.batches++
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return int64(len(events)), nil
}

// Events returns a copy of everything written so far.
func (s *Sink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Batches returns how many WriteBatch calls were made.
func (s *Sink) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// WaitFor blocks until at least n events were written or ctx is done.
func (s *Sink) WaitFor(ctx context.Context, n int) []domain.Event {
	for {
		if evs := s.Events(); len(evs) >= n {
			return evs
		}
		select {
		case <-ctx.Done():
			return s.Events()
		case <-s.notify:
		}
	}
}
