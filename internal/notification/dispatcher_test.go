package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/notification"
	"alumnireg/internal/notification/metrics"
	"alumnireg/pkg/platform/circuit"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []notification.Message
	to    []string
	err   error
	delay time.Duration
}

func (s *recordingSender) Send(ctx context.Context, recipient string, msg notification.Message, _ []notification.Attachment) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	s.to = append(s.to, recipient)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func codeIntent() notification.Intent {
	return notification.NewIntent(notification.KindVerificationCode, notification.ChannelEmail, "a@x.com",
		map[string]string{"code": "123456", "validity_minutes": "10"}, time.Now())
}

func TestDispatcherDelivers(t *testing.T) {
	email := &recordingSender{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	d := notification.NewDispatcher(notification.Renderer{EventName: "Meet"},
		map[notification.Channel]notification.Sender{notification.ChannelEmail: email},
		notification.WithDispatcherMetrics(m))

	require.NoError(t, d.Dispatch(context.Background(), codeIntent()))

	assert.Equal(t, 1, email.count())
	assert.Equal(t, []string{"a@x.com"}, email.to)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Deliveries.WithLabelValues("email", "sent")))
}

func TestDispatcherUnconfiguredChannelIsSkipped(t *testing.T) {
	d := notification.NewDispatcher(notification.Renderer{},
		map[notification.Channel]notification.Sender{notification.ChannelEmail: &recordingSender{err: notification.ErrNotConfigured}})

	assert.NoError(t, d.Dispatch(context.Background(), codeIntent()))
}

func TestDispatcherUnknownChannel(t *testing.T) {
	d := notification.NewDispatcher(notification.Renderer{}, map[notification.Channel]notification.Sender{})

	err := d.Dispatch(context.Background(), codeIntent())
	assert.ErrorIs(t, err, notification.ErrNoSender)
}

func TestDispatcherOpensCircuitAfterFailures(t *testing.T) {
	email := &recordingSender{err: errors.New("relay down")}
	d := notification.NewDispatcher(notification.Renderer{},
		map[notification.Channel]notification.Sender{notification.ChannelEmail: email},
		notification.WithBreakerOptions(circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour)))

	assert.ErrorContains(t, d.Dispatch(context.Background(), codeIntent()), "relay down")
	assert.ErrorContains(t, d.Dispatch(context.Background(), codeIntent()), "relay down")

	err := d.Dispatch(context.Background(), codeIntent())
	assert.ErrorIs(t, err, notification.ErrCircuitOpen)
}

func TestDispatcherTimesOutSlowSender(t *testing.T) {
	email := &recordingSender{delay: time.Second}
	d := notification.NewDispatcher(notification.Renderer{},
		map[notification.Channel]notification.Sender{notification.ChannelEmail: email},
		notification.WithDeliveryTimeout(20*time.Millisecond))

	err := d.Dispatch(context.Background(), codeIntent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcherRejectsUnknownKind(t *testing.T) {
	email := &recordingSender{}
	d := notification.NewDispatcher(notification.Renderer{},
		map[notification.Channel]notification.Sender{notification.ChannelEmail: email})

	intent := codeIntent()
	intent.Kind = "newsletter"
	assert.Error(t, d.Dispatch(context.Background(), intent))
	assert.Zero(t, email.count())
}
