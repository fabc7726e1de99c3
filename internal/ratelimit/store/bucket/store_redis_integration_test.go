//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"alumnireg/internal/ratelimit/store/bucket"
	"alumnireg/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()
	for i := range 3 {
		result, err := s.store.Allow(ctx, "ratelimit:issue:ip:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, "ratelimit:issue:ip:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(3, result.Limit)
	s.Positive(result.RetryAfter)

	ttl, err := s.redis.Client.PTTL(ctx, "ratelimit:issue:ip:10.0.0.1").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *RedisBucketStoreSuite) TestWindowExpiry() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ratelimit:verify:ip:10.0.0.2", 1, 200*time.Millisecond)
	s.Require().NoError(err)

	result, err := s.store.Allow(ctx, "ratelimit:verify:ip:10.0.0.2", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Eventually(func() bool {
		r, err := s.store.Allow(ctx, "ratelimit:verify:ip:10.0.0.2", 1, 200*time.Millisecond)
		return err == nil && r.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisBucketStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ratelimit:issue:id:a@x.com", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "ratelimit:issue:id:a@x.com"))

	result, err := s.store.Allow(ctx, "ratelimit:issue:id:a@x.com", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestConcurrentCallersNeverExceedLimit() {
	ctx := context.Background()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.store.Allow(ctx, "ratelimit:write:ip:10.0.0.3", 5, time.Minute)
			if err == nil && r.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(5), allowed.Load())
}
