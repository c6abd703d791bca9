package store

import (
	"context"
	"sync"

	"passgate/internal/registry/models"
	"passgate/pkg/platform/sentinel"
)

// InMemory keeps the four registry tables and the id counter in process
// memory. Intended for development and tests; the Postgres store is the
// production implementation.
type InMemory struct {
	mu          sync.RWMutex
	counter     uint64
	metadata    map[models.PassID]string
	owners      map[models.PassID]models.Identity
	revoked     map[models.PassID]bool
	bulkRecords map[models.PassID]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		metadata:    make(map[models.PassID]string),
		owners:      make(map[models.PassID]models.Identity),
		revoked:     make(map[models.PassID]bool),
		bulkRecords: make(map[models.PassID]string),
	}
}

// AllocateID advances the counter and returns the new id. The counter only
// increases; ids are never reassigned.
func (s *InMemory) AllocateID(_ context.Context) (models.PassID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return models.PassID(s.counter), nil
}

// Counter returns the id of the most recently issued pass (0 when none).
func (s *InMemory) Counter(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter, nil
}

// PutMetadata records the write-once metadata for a pass.
func (s *InMemory) PutMetadata(_ context.Context, id models.PassID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.metadata[id]; exists {
		return sentinel.ErrConflict
	}
	s.metadata[id] = text
	return nil
}

func (s *InMemory) Metadata(_ context.Context, id models.PassID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.metadata[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return text, nil
}

func (s *InMemory) Owner(_ context.Context, id models.PassID) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return owner, nil
}

func (s *InMemory) SetOwner(_ context.Context, id models.PassID, owner models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[id] = owner
	return nil
}

// DeleteOwner destroys the ownership binding. Revocation is the only caller.
func (s *InMemory) DeleteOwner(_ context.Context, id models.PassID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.owners, id)
	return nil
}

func (s *InMemory) IsRevoked(_ context.Context, id models.PassID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[id], nil
}

func (s *InMemory) SetRevoked(_ context.Context, id models.PassID, revoked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revoked {
		s.revoked[id] = true
	} else {
		delete(s.revoked, id)
	}
	return nil
}

// BulkRecord looks up per-batch metadata. No code path writes this table;
// the lookup exists for interface compatibility with deployments that
// expose it.
func (s *InMemory) BulkRecord(_ context.Context, id models.PassID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.bulkRecords[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return record, nil
}
