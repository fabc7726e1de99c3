package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"alumnireg/internal/notification/metrics"
)

var (
	ErrQueueFull   = errors.New("notification queue full")
	ErrQueueClosed = errors.New("notification queue closed")
)

// Queue is the in-process Port. Enqueue never blocks; Run drains the buffer
// into a Deliverer.
type Queue struct {
	inbox     chan Intent
	deliverer Deliverer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	closeOnce sync.Once
	done      chan struct{}
}

type QueueOption func(*Queue)

func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

func WithQueueMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

func NewQueue(deliverer Deliverer, size int, opts ...QueueOption) *Queue {
	if size <= 0 {
		size = 1
	}
	q := &Queue{
		inbox:     make(chan Intent, size),
		deliverer: deliverer,
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Enqueue(_ context.Context, intent Intent) error {
	select {
	case <-q.done:
		q.metrics.IncrementDropped(string(intent.Kind), "queue")
		return ErrQueueClosed
	default:
	}
	select {
	case q.inbox <- intent:
		q.metrics.IncrementEnqueued(string(intent.Kind), "queue")
		return nil
	default:
		q.metrics.IncrementDropped(string(intent.Kind), "queue")
		return ErrQueueFull
	}
}

// Run delivers intents until ctx is cancelled, then delivers what is still
// buffered before returning ctx.Err().
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.closeOnce.Do(func() { close(q.done) })
			q.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case intent := <-q.inbox:
			q.deliver(ctx, intent)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case intent := <-q.inbox:
			q.deliver(ctx, intent)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, intent Intent) {
	if err := q.deliverer.Dispatch(ctx, intent); err != nil {
		q.logger.WarnContext(ctx, "notification delivery failed",
			"kind", intent.Kind,
			"channel", intent.Channel,
			"intent_id", intent.ID,
			"error", err,
		)
	}
}

// EnqueueAll hands intents to port concurrently and waits at most timeout.
// It returns the joined enqueue failures so the caller can log them; callers
// never fail a workflow operation on the result.
func EnqueueAll(ctx context.Context, port Port, timeout time.Duration, intents ...Intent) error {
	if port == nil || len(intents) == 0 {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	errs := make([]error, len(intents))
	var g errgroup.Group
	for i, intent := range intents {
		g.Go(func() error {
			errs[i] = port.Enqueue(ctx, intent)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
