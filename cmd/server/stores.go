package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"alumnireg/internal/payment/service"
	paymentstore "alumnireg/internal/payment/store"
	"alumnireg/internal/platform/config"
	"alumnireg/internal/platform/metrics"
	"alumnireg/internal/platform/postgres"
	"alumnireg/internal/platform/redis"
	registrationservice "alumnireg/internal/registration/service"
	registrationstore "alumnireg/internal/registration/store"
	verificationservice "alumnireg/internal/verification/service"
	verificationstore "alumnireg/internal/verification/store"
	audit "alumnireg/pkg/platform/audit"
	auditmemory "alumnireg/pkg/platform/audit/store/memory"
	auditpostgres "alumnireg/pkg/platform/audit/store/postgres"
)

// stores holds the durable state. Without DATABASE_URL and REDIS_URL every
// store lives in process memory.
type stores struct {
	registrations registrationservice.Store
	transactions  service.TransactionStore
	paymentTx     service.StoreTx
	records       verificationservice.RecordStore
	audit         audit.Store

	db    *postgres.DB
	redis *redis.Client
}

func openStores(ctx context.Context, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (*stores, error) {
	s := &stores{}

	if cfg.Storage.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := postgres.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.db = db
		regs := registrationstore.NewPostgres(db.DB)
		txns := paymentstore.NewPostgres(db.DB)
		s.registrations, s.transactions = regs, txns
		s.paymentTx = service.NewPostgresTx(db.DB, service.Stores{Transactions: txns, Registrations: regs}, cfg.Storage.TxTimeout)
		s.audit = auditpostgres.New(db.DB)
		logger.InfoContext(ctx, "using postgres stores")
	} else {
		regs := registrationstore.NewInMemoryStore()
		txns := paymentstore.NewInMemoryStore()
		s.registrations, s.transactions = regs, txns
		s.paymentTx = service.NewShardedTx(service.Stores{Transactions: txns, Registrations: regs}, cfg.Storage.TxTimeout)
		s.audit = auditmemory.NewInMemoryStore()
		logger.WarnContext(ctx, "DATABASE_URL not set, registrations are kept in memory")
	}
	m.SetDependencyUp("postgres", s.db != nil)

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		s.close()
		return nil, err
	}
	if client != nil {
		s.redis = client
		s.records = verificationstore.NewRedis(client.Client, cfg.Verification.TokenTTL)
	} else {
		s.records = verificationstore.NewInMemoryStore(cfg.Verification.TokenTTL)
	}
	m.SetDependencyUp("redis", s.redis != nil)
	return s, nil
}

// health pings the configured backends.
func (s *stores) health(r *http.Request) error {
	ctx := r.Context()
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (s *stores) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
