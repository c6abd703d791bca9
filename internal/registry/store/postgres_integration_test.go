//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"passgate/internal/registry/models"
	"passgate/internal/registry/store"
	"passgate/pkg/platform/sentinel"
	txcontext "passgate/pkg/platform/tx"
	"passgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.RunMigrations(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestAllocateID() {
	ctx := context.Background()

	first, err := s.store.AllocateID(ctx)
	s.NoError(err)
	s.Equal(models.PassID(1), first)

	second, err := s.store.AllocateID(ctx)
	s.NoError(err)
	s.Equal(models.PassID(2), second)

	counter, err := s.store.Counter(ctx)
	s.NoError(err)
	s.Equal(uint64(2), counter)
}

func (s *PostgresStoreSuite) TestMetadataWriteOnce() {
	ctx := context.Background()

	s.Require().NoError(s.store.PutMetadata(ctx, 1, "original"))

	err := s.store.PutMetadata(ctx, 1, "overwrite")
	s.ErrorIs(err, sentinel.ErrConflict)

	text, err := s.store.Metadata(ctx, 1)
	s.NoError(err)
	s.Equal("original", text)

	_, err = s.store.Metadata(ctx, 99)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOwnerLifecycle() {
	ctx := context.Background()

	_, err := s.store.Owner(ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.SetOwner(ctx, 1, "alice"))
	s.Require().NoError(s.store.SetOwner(ctx, 1, "bob"))

	owner, err := s.store.Owner(ctx, 1)
	s.NoError(err)
	s.Equal(models.Identity("bob"), owner)

	s.NoError(s.store.DeleteOwner(ctx, 1))
	_, err = s.store.Owner(ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.DeleteOwner(ctx, 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRevocationFlag() {
	ctx := context.Background()

	revoked, err := s.store.IsRevoked(ctx, 1)
	s.NoError(err)
	s.False(revoked)

	s.Require().NoError(s.store.SetRevoked(ctx, 1, true))
	revoked, err = s.store.IsRevoked(ctx, 1)
	s.NoError(err)
	s.True(revoked)

	s.Require().NoError(s.store.SetRevoked(ctx, 1, false))
	revoked, err = s.store.IsRevoked(ctx, 1)
	s.NoError(err)
	s.False(revoked)
}

// TestTransactionRollback verifies that statements issued under a context-
// carried transaction roll back together.
func (s *PostgresStoreSuite) TestTransactionRollback() {
	ctx := context.Background()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := txcontext.WithTx(ctx, tx)

	id, err := s.store.AllocateID(txCtx)
	s.Require().NoError(err)
	s.Require().NoError(s.store.PutMetadata(txCtx, id, "doomed"))
	s.Require().NoError(s.store.SetOwner(txCtx, id, "alice"))

	s.Require().NoError(tx.Rollback())

	_, err = s.store.Metadata(ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Owner(ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	counter, err := s.store.Counter(ctx)
	s.NoError(err)
	s.Zero(counter)
}
