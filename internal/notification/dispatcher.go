package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alumnireg/internal/notification/metrics"
	"alumnireg/internal/platform/config"
	"alumnireg/pkg/platform/circuit"
)

var (
	ErrNoSender    = errors.New("no sender for channel")
	ErrCircuitOpen = errors.New("channel circuit open")
)

// Deliverer delivers a single intent synchronously.
type Deliverer interface {
	Dispatch(ctx context.Context, intent Intent) error
}

// Dispatcher renders intents and delivers them through the sender registered
// for their channel. Each channel has its own circuit breaker so a failing
// gateway does not hold up the others.
type Dispatcher struct {
	renderer Renderer
	senders  map[Channel]Sender
	breakers map[Channel]*circuit.Breaker
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithDeliveryTimeout bounds one send attempt.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithBreakerOptions configures every channel breaker.
func WithBreakerOptions(opts ...circuit.Option) DispatcherOption {
	return func(d *Dispatcher) {
		for ch := range d.senders {
			d.breakers[ch] = circuit.New(string(ch), opts...)
		}
	}
}

func NewDispatcher(renderer Renderer, senders map[Channel]Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		renderer: renderer,
		senders:  senders,
		breakers: make(map[Channel]*circuit.Breaker, len(senders)),
		timeout:  10 * time.Second,
		logger:   slog.Default(),
	}
	for ch := range senders {
		d.breakers[ch] = circuit.New(string(ch))
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers intent. A channel without credentials is skipped and is
// not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) error {
	channel := string(intent.Channel)
	sender, ok := d.senders[intent.Channel]
	if !ok {
		d.metrics.ObserveDelivery(channel, "failed", 0)
		return fmt.Errorf("%w: %s", ErrNoSender, intent.Channel)
	}
	breaker := d.breakers[intent.Channel]
	if !breaker.Allow() {
		d.metrics.ObserveDelivery(channel, "circuit_open", 0)
		return fmt.Errorf("%w: %s", ErrCircuitOpen, intent.Channel)
	}

	msg, err := d.renderer.Render(intent)
	if err != nil {
		d.metrics.ObserveDelivery(channel, "failed", 0)
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := time.Now()
	err = sender.Send(sendCtx, intent.Recipient, msg, intent.Attachments)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrNotConfigured):
		d.metrics.ObserveDelivery(channel, "skipped", 0)
		d.logger.DebugContext(ctx, "notification channel not configured",
			"channel", channel,
			"kind", intent.Kind,
			"intent_id", intent.ID,
		)
		return nil
	case err != nil:
		d.metrics.ObserveDelivery(channel, "failed", elapsed)
		if _, change := breaker.RecordFailure(); change.Opened {
			d.logger.WarnContext(ctx, "notification circuit opened", "channel", channel)
		}
		return fmt.Errorf("deliver %s over %s: %w", intent.Kind, intent.Channel, err)
	}

	d.metrics.ObserveDelivery(channel, "sent", elapsed)
	if _, change := breaker.RecordSuccess(); change.Closed {
		d.logger.InfoContext(ctx, "notification circuit closed", "channel", channel)
	}
	d.logger.InfoContext(ctx, "notification delivered",
		"channel", channel,
		"kind", intent.Kind,
		"intent_id", intent.ID,
	)
	return nil
}

// SendersFromConfig builds one sender per channel. Channels without
// credentials fall back to a LogSender.
func SendersFromConfig(cfg config.Notifications, logger *slog.Logger) map[Channel]Sender {
	senders := map[Channel]Sender{
		ChannelEmail:     NewLogSender(logger, ChannelEmail),
		ChannelMessaging: NewLogSender(logger, ChannelMessaging),
		ChannelOperator:  NewLogSender(logger, ChannelOperator),
	}
	if cfg.SMTPAddr != "" {
		senders[ChannelEmail] = NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	if cfg.WhatsAppAPIURL != "" && cfg.WhatsAppToken != "" {
		senders[ChannelMessaging] = NewWhatsAppSender(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.DeliveryTimeout)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders[ChannelOperator] = NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID, cfg.DeliveryTimeout)
	}
	return senders
}
