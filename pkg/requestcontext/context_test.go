package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientMetadata(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, Device(ctx))

	ctx = WithDevice(ctx, "Firefox on Linux")
	ctx = WithClientMetadata(ctx, "10.0.0.7", "Mozilla/5.0")

	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "Mozilla/5.0", UserAgent(ctx))
	assert.Equal(t, "Firefox on Linux", Device(ctx), "device survives a later metadata write")
}

func TestNow(t *testing.T) {
	fixed := time.Date(2025, 12, 20, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))

	got := Now(context.Background())
	assert.Equal(t, time.UTC, got.Location())
	assert.WithinDuration(t, time.Now(), got, time.Second)
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "req-1", RequestID(WithRequestID(context.Background(), "req-1")))
}
