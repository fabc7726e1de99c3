package middleware

import (
	"context"
	"fmt"
	"time"

	"alumnireg/internal/ratelimit/models"
)

// BucketStore is the sliding window counter the limiter consults.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limiter applies the configured class limits to a bucket store.
type Limiter struct {
	store  BucketStore
	limits map[models.EndpointClass]models.ClassLimits
}

func NewLimiter(store BucketStore, limits map[models.EndpointClass]models.ClassLimits) *Limiter {
	return &Limiter{store: store, limits: limits}
}

// CheckIP counts one request from ip against the class's per-client limit.
// A class without a limit always allows.
func (l *Limiter) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit := l.limits[class].PerIP
	if !limit.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	result, err := l.store.Allow(ctx, models.IPKey(class, ip), limit.Requests, limit.Window)
	if err != nil {
		return nil, fmt.Errorf("check ip limit: %w", err)
	}
	return result, nil
}

// CheckIdentity counts one request for a registrant identity. An empty
// identity is left to validation and always allows.
func (l *Limiter) CheckIdentity(ctx context.Context, identity string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit := l.limits[class].PerIdentity
	if identity == "" || !limit.Enabled() {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	result, err := l.store.Allow(ctx, models.IdentityKey(class, identity), limit.Requests, limit.Window)
	if err != nil {
		return nil, fmt.Errorf("check identity limit: %w", err)
	}
	return result, nil
}
