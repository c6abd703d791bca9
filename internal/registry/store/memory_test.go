package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"passgate/internal/registry/models"
	"passgate/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemorySuite) TestAllocateID() {
	ctx := context.Background()

	s.Run("ids start at one and increase", func() {
		first, err := s.store.AllocateID(ctx)
		s.NoError(err)
		s.Equal(models.PassID(1), first)

		second, err := s.store.AllocateID(ctx)
		s.NoError(err)
		s.Equal(models.PassID(2), second)

		counter, err := s.store.Counter(ctx)
		s.NoError(err)
		s.Equal(uint64(2), counter)
	})

	s.Run("concurrent allocation never hands out duplicates", func() {
		store := NewInMemory()
		const n = 100

		var wg sync.WaitGroup
		ids := make([]models.PassID, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				id, err := store.AllocateID(ctx)
				s.NoError(err)
				ids[slot] = id
			}(i)
		}
		wg.Wait()

		seen := make(map[models.PassID]bool, n)
		for _, id := range ids {
			s.False(seen[id], "id %d allocated twice", id)
			seen[id] = true
		}
	})
}

func (s *InMemorySuite) TestMetadata() {
	ctx := context.Background()

	s.Run("missing metadata reports not found", func() {
		_, err := s.store.Metadata(ctx, 1)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("metadata is write-once", func() {
		s.NoError(s.store.PutMetadata(ctx, 1, "original"))

		err := s.store.PutMetadata(ctx, 1, "overwrite")
		s.ErrorIs(err, sentinel.ErrConflict)

		text, err := s.store.Metadata(ctx, 1)
		s.NoError(err)
		s.Equal("original", text)
	})
}

func (s *InMemorySuite) TestOwner() {
	ctx := context.Background()

	s.Run("missing owner reports not found", func() {
		_, err := s.store.Owner(ctx, 1)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("set and replace owner", func() {
		s.NoError(s.store.SetOwner(ctx, 1, "alice"))
		s.NoError(s.store.SetOwner(ctx, 1, "bob"))

		owner, err := s.store.Owner(ctx, 1)
		s.NoError(err)
		s.Equal(models.Identity("bob"), owner)
	})

	s.Run("delete destroys the binding", func() {
		s.NoError(s.store.SetOwner(ctx, 2, "alice"))
		s.NoError(s.store.DeleteOwner(ctx, 2))

		_, err := s.store.Owner(ctx, 2)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting an absent binding reports not found", func() {
		err := s.store.DeleteOwner(ctx, 999)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestRevocationFlag() {
	ctx := context.Background()

	s.Run("absence means not revoked", func() {
		revoked, err := s.store.IsRevoked(ctx, 1)
		s.NoError(err)
		s.False(revoked)
	})

	s.Run("set and clear round trip", func() {
		s.NoError(s.store.SetRevoked(ctx, 1, true))

		revoked, err := s.store.IsRevoked(ctx, 1)
		s.NoError(err)
		s.True(revoked)

		s.NoError(s.store.SetRevoked(ctx, 1, false))

		revoked, err = s.store.IsRevoked(ctx, 1)
		s.NoError(err)
		s.False(revoked)
	})
}

func (s *InMemorySuite) TestBulkRecord() {
	_, err := s.store.BulkRecord(context.Background(), 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
