package util

import (
	"context"
	"sync"
)

// Latest holds the most recent value of a stream and lets any number
// of observers wait for it without ever blocking the producer.
// Intermediate values are dropped when observers fall behind.
type Latest[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	changed chan struct{} // closed and replaced on every Send
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{
		changed: make(chan struct{}),
	}
}

// Send replaces the stored value and wakes every waiting observer.
func (s *Latest[T]) Send(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// Value returns the latest value together with its version. Version 0
// means nothing has been sent yet.
func (s *Latest[T]) Value() (T, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.version
}

// Wait blocks until a value newer than version is available or ctx is
// done.
func (s *Latest[T]) Wait(ctx context.Context, version uint64) (T, uint64, error) {
	for {
		s.mu.Lock()
		value, current, changed := s.value, s.version, s.changed
		s.mu.Unlock()

		if current > version {
			return value, current, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, version, ctx.Err()
		case <-changed:
		}
	}
}
