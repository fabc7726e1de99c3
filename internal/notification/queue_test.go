package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"alumnireg/internal/notification"
	"alumnireg/internal/notification/mocks"
)

type collectingDeliverer struct {
	mu      sync.Mutex
	intents []notification.Intent
	seen    chan struct{}
}

func newCollector() *collectingDeliverer {
	return &collectingDeliverer{seen: make(chan struct{}, 16)}
}

func (c *collectingDeliverer) Dispatch(_ context.Context, intent notification.Intent) error {
	c.mu.Lock()
	c.intents = append(c.intents, intent)
	c.mu.Unlock()
	c.seen <- struct{}{}
	return nil
}

func (c *collectingDeliverer) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.intents)
}

func TestQueueDeliversInBackground(t *testing.T) {
	c := newCollector()
	q := notification.NewQueue(c, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	require.NoError(t, q.Enqueue(context.Background(), codeIntent()))

	select {
	case <-c.seen:
	case <-time.After(time.Second):
		t.Fatal("intent was not delivered")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, q.Enqueue(context.Background(), codeIntent()), notification.ErrQueueClosed)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := notification.NewQueue(newCollector(), 1)

	require.NoError(t, q.Enqueue(context.Background(), codeIntent()))
	assert.ErrorIs(t, q.Enqueue(context.Background(), codeIntent()), notification.ErrQueueFull)
}

func TestQueueDrainsBufferOnShutdown(t *testing.T) {
	c := newCollector()
	q := notification.NewQueue(c, 4)
	require.NoError(t, q.Enqueue(context.Background(), codeIntent()))
	require.NoError(t, q.Enqueue(context.Background(), codeIntent()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = q.Run(ctx)

	assert.Equal(t, 2, c.len())
}

func TestEnqueueAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := mocks.NewMockPort(ctrl)

	email := codeIntent()
	sms := codeIntent()
	sms.Channel = notification.ChannelMessaging

	port.EXPECT().Enqueue(gomock.Any(), email).Return(nil)
	port.EXPECT().Enqueue(gomock.Any(), sms).Return(errors.New("broker unavailable"))

	err := notification.EnqueueAll(context.Background(), port, time.Second, email, sms)
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestEnqueueAllWithoutPort(t *testing.T) {
	assert.NoError(t, notification.EnqueueAll(context.Background(), nil, time.Second, codeIntent()))
}
