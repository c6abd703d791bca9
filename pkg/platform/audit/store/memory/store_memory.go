// Package memory provides an in-process audit outbox for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	audit "passgate/pkg/platform/audit"
)

type Store struct {
	mu        sync.Mutex
	events    []audit.Event
	published map[uuid.UUID]bool
}

func New() *Store {
	return &Store{published: make(map[uuid.UUID]bool)}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) Pending(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]audit.Event, 0, limit)
	for _, event := range s.events {
		if s.published[event.ID] {
			continue
		}
		pending = append(pending, event)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

// Events returns a copy of everything appended so far. Test helper.
func (s *Store) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event{}, s.events...)
}
