package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	adminservice "alumnireg/internal/admin/service"
	"alumnireg/internal/contribution"
	"alumnireg/internal/notification"
	paymentservice "alumnireg/internal/payment/service"
	paymentstore "alumnireg/internal/payment/store"
	"alumnireg/internal/payment/txid"
	"alumnireg/internal/platform/config"
	"alumnireg/internal/platform/kafka"
	"alumnireg/internal/platform/logger"
	"alumnireg/internal/platform/postgres"
	registrationservice "alumnireg/internal/registration/service"
	registrationstore "alumnireg/internal/registration/store"
	auditpublisher "alumnireg/pkg/platform/audit/publisher"
	auditpostgres "alumnireg/pkg/platform/audit/store/postgres"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or --database-url")

// app is the slice of the server wiring the operator commands need.
type app struct {
	cfg         config.Config
	db          *postgres.DB
	logger      *slog.Logger
	admin       *adminservice.Service
	audit       *auditpublisher.Publisher
	closeNotify func()
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg := config.FromEnv()
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		cfg.Storage.DatabaseURL = url
	}
	if cfg.Storage.DatabaseURL == "" {
		return nil, errNoDatabase
	}

	log := logger.NewWithWriter(os.Stderr, cfg.Server.Environment)
	db, err := postgres.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	regs := registrationstore.NewPostgres(db.DB)
	txns := paymentstore.NewPostgres(db.DB)
	audit := auditpublisher.NewPublisher(auditpostgres.New(db.DB), auditpublisher.WithLogger(log))

	policy := contribution.NewPolicy(contribution.Rates{
		Standard:       cfg.Contribution.StandardRate,
		RecentGraduate: cfg.Contribution.RecentGraduateRate,
		Youth:          cfg.Contribution.YouthRate,
	}, cfg.Contribution.LatestCohort, cfg.Contribution.RecentCohortCount)

	ids, err := txid.New(cfg.Payments.SnowflakeNode)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	notifier, closeNotify, err := newNotificationPort(cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Operator commands never run the wizard, so the registration service
	// needs no verification gate.
	registrations := registrationservice.New(regs, nil, policy, notifier,
		registrationservice.Config{
			DispatchTimeout: cfg.Notifications.DeliveryTimeout,
			CheckInBaseURL:  cfg.Notifications.CheckInBaseURL,
		},
		registrationservice.WithLogger(log),
		registrationservice.WithAuditPublisher(audit),
	)

	payments := paymentservice.New(
		paymentservice.NewPostgresTx(db.DB, paymentservice.Stores{Transactions: txns, Registrations: regs}, cfg.Storage.TxTimeout),
		txns, policy, ids, notifier,
		paymentservice.Config{
			DispatchTimeout: cfg.Verification.DispatchTimeout,
			Currency:        cfg.Contribution.CurrencyDisplayCode,
			ReconcileBatch:  cfg.Payments.ReconcileBatch,
		},
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(audit),
	)

	return &app{
		cfg:         cfg,
		db:          db,
		logger:      log,
		admin:       adminservice.New(registrations, payments, adminservice.WithLogger(log)),
		audit:       audit,
		closeNotify: closeNotify,
	}, nil
}

func (a *app) close() {
	a.closeNotify()
	a.audit.Close()
	_ = a.db.Close()
}

// newNotificationPort publishes to the notification topic when brokers are
// configured, so the server's consumer delivers. Otherwise intents are
// delivered before the command returns.
func newNotificationPort(cfg config.Config, log *slog.Logger) (notification.Port, func(), error) {
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Notifications.DeliveryTimeout)
			defer cancel()
			producer.Close(ctx)
		}
		return notification.NewKafkaPort(producer, nil), closeFn, nil
	}

	dispatcher := notification.NewDispatcher(
		notification.Renderer{EventName: cfg.Notifications.EventName},
		notification.SendersFromConfig(cfg.Notifications, log),
		notification.WithDispatcherLogger(log),
		notification.WithDeliveryTimeout(cfg.Notifications.DeliveryTimeout),
	)
	return directPort{dispatcher}, func() {}, nil
}

// directPort delivers each intent synchronously.
type directPort struct {
	deliverer notification.Deliverer
}

func (p directPort) Enqueue(ctx context.Context, intent notification.Intent) error {
	return p.deliverer.Dispatch(ctx, intent)
}
