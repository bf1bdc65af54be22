//go:build integration

package rulecache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"acadmin/internal/approval/models"
	policystore "acadmin/internal/approval/store/policy"
	"acadmin/internal/approval/store/rulecache"
	"acadmin/pkg/platform/sentinel"
	"acadmin/pkg/testutil/containers"
)

type countingBackend struct {
	*policystore.InMemory
	finds atomic.Int32
}

func (b *countingBackend) FindRuleConfig(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error) {
	b.finds.Add(1)
	return b.InMemory.FindRuleConfig(ctx, key)
}

type CacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *countingBackend
	cache   *rulecache.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backend = &countingBackend{InMemory: policystore.NewInMemory()}
	s.cache = rulecache.New(s.backend, s.redis.Client())
}

func (s *CacheSuite) TestReadThrough() {
	ctx := context.Background()
	cfg := models.DefaultRuleConfig("program", "delete")
	cfg.MinApprovers = 2
	cfg.ApprovalRule = models.RuleQuorum
	s.Require().NoError(s.backend.UpsertRuleConfig(ctx, &cfg))

	for range 3 {
		got, err := s.cache.FindRuleConfig(ctx, cfg.Key())
		s.Require().NoError(err)
		s.Equal(2, got.MinApprovers)
		s.Equal(models.RuleQuorum, got.ApprovalRule)
	}
	s.Equal(int32(1), s.backend.finds.Load())
}

func (s *CacheSuite) TestAbsentRowIsCached() {
	ctx := context.Background()
	key := models.NewActionKey("branch", "delete")

	_, err := s.cache.FindRuleConfig(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.cache.FindRuleConfig(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(int32(1), s.backend.finds.Load())
}

func (s *CacheSuite) TestUpsertInvalidates() {
	ctx := context.Background()
	cfg := models.DefaultRuleConfig("degree", "delete")
	s.Require().NoError(s.backend.UpsertRuleConfig(ctx, &cfg))

	got, err := s.cache.FindRuleConfig(ctx, cfg.Key())
	s.Require().NoError(err)
	s.Equal(1, got.MinApprovers)

	cfg.MinApprovers = 4
	cfg.ApprovalRule = models.RuleQuorum
	s.Require().NoError(s.backend.UpsertRuleConfig(ctx, &cfg))
	s.Require().NoError(s.cache.Invalidate(ctx, cfg.Key()))

	got, err = s.cache.FindRuleConfig(ctx, cfg.Key())
	s.Require().NoError(err)
	s.Equal(4, got.MinApprovers)
	s.Equal(int32(2), s.backend.finds.Load())
}

func (s *CacheSuite) TestConcurrentMissesLoadOnce() {
	ctx := context.Background()
	cfg := models.DefaultRuleConfig("faculty", "delete")
	s.Require().NoError(s.backend.UpsertRuleConfig(ctx, &cfg))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.cache.FindRuleConfig(ctx, cfg.Key())
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.LessOrEqual(s.backend.finds.Load(), int32(20))
	s.GreaterOrEqual(s.backend.finds.Load(), int32(1))
}
