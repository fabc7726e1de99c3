package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	adminhandler "alumnireg/internal/admin/handler"
	adminservice "alumnireg/internal/admin/service"
	"alumnireg/internal/contribution"
	jwttoken "alumnireg/internal/jwt_token"
	"alumnireg/internal/notification"
	notificationmetrics "alumnireg/internal/notification/metrics"
	paymenthandler "alumnireg/internal/payment/handler"
	paymentmetrics "alumnireg/internal/payment/metrics"
	paymentservice "alumnireg/internal/payment/service"
	"alumnireg/internal/payment/txid"
	"alumnireg/internal/platform/config"
	"alumnireg/internal/platform/httpserver"
	"alumnireg/internal/platform/kafka"
	"alumnireg/internal/platform/logger"
	"alumnireg/internal/platform/metrics"
	ratelimitmodels "alumnireg/internal/ratelimit/models"
	registrationhandler "alumnireg/internal/registration/handler"
	registrationmetrics "alumnireg/internal/registration/metrics"
	registrationservice "alumnireg/internal/registration/service"
	httptransport "alumnireg/internal/transport/http"
	verificationadapters "alumnireg/internal/verification/adapters"
	verificationhandler "alumnireg/internal/verification/handler"
	verificationmetrics "alumnireg/internal/verification/metrics"
	verificationservice "alumnireg/internal/verification/service"
	auditpublisher "alumnireg/pkg/platform/audit/publisher"
)

const auditBuffer = 1024

// main wires the stores, the notification pipeline and the four services, then
// serves HTTP until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Environment)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	platformMetrics := metrics.New()

	st, err := openStores(ctx, cfg, platformMetrics, log)
	if err != nil {
		return err
	}
	defer st.close()

	audit := auditpublisher.NewPublisher(st.audit,
		auditpublisher.WithAsyncBuffer(auditBuffer),
		auditpublisher.WithLogger(log),
	)
	defer audit.Close()

	g, gctx := errgroup.WithContext(ctx)

	notifier, err := startNotifications(gctx, g, cfg, platformMetrics, log)
	if err != nil {
		return err
	}

	policy := contribution.NewPolicy(contribution.Rates{
		Standard:       cfg.Contribution.StandardRate,
		RecentGraduate: cfg.Contribution.RecentGraduateRate,
		Youth:          cfg.Contribution.YouthRate,
	}, cfg.Contribution.LatestCohort, cfg.Contribution.RecentCohortCount)

	tokens := jwttoken.NewGrantTokens(jwttoken.NewJWTService(cfg.Verification.TokenSigningKey, "alumnireg", "registration"))
	verification := verificationservice.New(st.records, tokens,
		verificationadapters.NewRegistrationFinder(st.registrations), notifier,
		verificationservice.Config{
			CodeLength:      cfg.Verification.CodeLength,
			ValidityWindow:  cfg.Verification.ValidityWindow,
			MaxAttempts:     cfg.Verification.MaxAttempts,
			TokenTTL:        cfg.Verification.TokenTTL,
			DispatchTimeout: cfg.Verification.DispatchTimeout,
			ExposeCode:      !cfg.Server.IsProduction(),
		},
		verificationservice.WithLogger(log),
		verificationservice.WithAuditPublisher(audit),
		verificationservice.WithMetrics(verificationmetrics.New()),
	)

	registrations := registrationservice.New(st.registrations, verification, policy, notifier,
		registrationservice.Config{
			DispatchTimeout: cfg.Verification.DispatchTimeout,
			CheckInBaseURL:  cfg.Notifications.CheckInBaseURL,
		},
		registrationservice.WithLogger(log),
		registrationservice.WithAuditPublisher(audit),
		registrationservice.WithMetrics(registrationmetrics.New()),
	)

	ids, err := txid.New(cfg.Payments.SnowflakeNode)
	if err != nil {
		return err
	}
	payments := paymentservice.New(st.paymentTx, st.transactions, policy, ids, notifier,
		paymentservice.Config{
			DispatchTimeout: cfg.Verification.DispatchTimeout,
			Currency:        cfg.Contribution.CurrencyDisplayCode,
			ReconcileBatch:  cfg.Payments.ReconcileBatch,
		},
		paymentservice.WithLogger(log),
		paymentservice.WithAuditPublisher(audit),
		paymentservice.WithMetrics(paymentmetrics.New()),
	)

	if cfg.Storage.ReconcileOnBoot {
		if _, err := payments.ReconcilePending(ctx); err != nil {
			log.ErrorContext(ctx, "startup reconciliation failed", "error", err)
		}
	}

	admin := adminservice.New(registrations, payments, adminservice.WithLogger(log))
	if cfg.Server.AdminToken == "" {
		log.WarnContext(ctx, "ADMIN_API_TOKEN not set, admin endpoints are disabled")
	}

	limiter := newRateLimiter(cfg.RateLimit, st, log)
	router := httptransport.NewRouter(httptransport.Config{
		AdminToken:     cfg.Server.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         log,
		Latency:        platformMetrics,
		Health:         st.health,
		Metrics:        httptransport.MetricsHandler(),
		RateLimit:      limiter.RateLimit(ratelimitmodels.ClassWrite),
	}, httptransport.Handlers{
		Public: []httptransport.Registrar{
			verificationhandler.New(verification, log,
				verificationhandler.WithIssueLimit(limiter.RateLimitIdentity(ratelimitmodels.ClassIssue)),
				verificationhandler.WithVerifyLimit(limiter.RateLimitIdentity(ratelimitmodels.ClassVerify)),
			),
			registrationhandler.New(registrations, log),
			paymenthandler.New(payments, log),
		},
		Admin: []httptransport.Registrar{
			adminhandler.New(admin, log),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		log.Info("starting registration api", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startNotifications returns the Port services enqueue on. With brokers
// configured intents go through Kafka and a consumer in this process delivers
// them; otherwise an in-process queue does.
func startNotifications(ctx context.Context, g *errgroup.Group, cfg config.Config, platformMetrics *metrics.Metrics, log *slog.Logger) (notification.Port, error) {
	m := notificationmetrics.New()
	dispatcher := notification.NewDispatcher(
		notification.Renderer{EventName: cfg.Notifications.EventName},
		notification.SendersFromConfig(cfg.Notifications, log),
		notification.WithDispatcherLogger(log),
		notification.WithDispatcherMetrics(m),
		notification.WithDeliveryTimeout(cfg.Notifications.DeliveryTimeout),
	)

	if !cfg.Kafka.Enabled() {
		platformMetrics.SetDependencyUp("kafka", false)
		queue := notification.NewQueue(dispatcher, cfg.Notifications.QueueSize,
			notification.WithQueueLogger(log),
			notification.WithQueueMetrics(m),
		)
		g.Go(func() error {
			if err := queue.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		return queue, nil
	}

	if err := kafka.EnsureTopic(ctx, cfg.Kafka); err != nil {
		return nil, err
	}
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka, log)
	if err != nil {
		producer.Close(ctx)
		return nil, err
	}
	platformMetrics.SetDependencyUp("kafka", true)
	g.Go(func() error {
		defer consumer.Close()
		return consumer.Run(ctx, notification.KafkaHandler(dispatcher))
	})
	g.Go(func() error {
		<-ctx.Done()
		producer.Close(context.WithoutCancel(ctx))
		return nil
	})
	return notification.NewKafkaPort(producer, m), nil
}
