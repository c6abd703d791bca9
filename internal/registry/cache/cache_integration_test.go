//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"passgate/internal/registry/cache"
	"passgate/internal/registry/models"
	"passgate/pkg/platform/sentinel"
	"passgate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestPutGetInvalidate() {
	ctx := context.Background()
	pass := &models.Pass{ID: 7, Metadata: "cached pass", Owner: "alice"}

	_, err := s.cache.Get(ctx, 7)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.cache.Put(ctx, pass))

	got, err := s.cache.Get(ctx, 7)
	s.NoError(err)
	s.Equal(pass, got)

	s.Require().NoError(s.cache.Invalidate(ctx, 7))

	_, err = s.cache.Get(ctx, 7)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	shortLived := cache.NewRedis(s.redis.Client, 100*time.Millisecond)

	s.Require().NoError(shortLived.Put(ctx, &models.Pass{ID: 9, Metadata: "ephemeral"}))

	time.Sleep(300 * time.Millisecond)

	_, err := shortLived.Get(ctx, 9)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestNilPassRejected() {
	s.Error(s.cache.Put(context.Background(), nil))
}
