package main

import (
	"log/slog"

	"alumnireg/internal/platform/config"
	ratelimitmetrics "alumnireg/internal/ratelimit/metrics"
	ratelimit "alumnireg/internal/ratelimit/middleware"
	"alumnireg/internal/ratelimit/models"
	"alumnireg/internal/ratelimit/store/bucket"
)

// newRateLimiter shares counters through Redis when it is configured so every
// replica sees the same buckets.
func newRateLimiter(cfg config.RateLimit, st *stores, log *slog.Logger) *ratelimit.Middleware {
	var store ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	if st.redis != nil {
		store = bucket.NewRedisBucketStore(st.redis.Client)
	}

	limits := map[models.EndpointClass]models.ClassLimits{
		models.ClassIssue: {
			PerIP:       models.Limit{Requests: cfg.IssuePerIP, Window: cfg.Window},
			PerIdentity: models.Limit{Requests: cfg.IssuePerIdentity, Window: cfg.Window},
		},
		models.ClassVerify: {
			PerIP:       models.Limit{Requests: cfg.VerifyPerIP, Window: cfg.Window},
			PerIdentity: models.Limit{Requests: cfg.VerifyPerIdentity, Window: cfg.Window},
		},
		models.ClassWrite: {
			PerIP: models.Limit{Requests: cfg.WritePerIP, Window: cfg.WriteWindow},
		},
	}
	return ratelimit.New(ratelimit.NewLimiter(store, limits), log,
		ratelimit.WithDisabled(cfg.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	)
}
