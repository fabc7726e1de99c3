package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"alumnireg/internal/notification"
	"alumnireg/internal/registration/metrics"
	"alumnireg/internal/registration/models"
	verificationModels "alumnireg/internal/verification/models"
	"alumnireg/pkg/attrs"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	audit "alumnireg/pkg/platform/audit"
	request "alumnireg/pkg/platform/middleware/request"
	"alumnireg/pkg/platform/sentinel"
)

// Store persists registration aggregates. Update is a compare-and-swap on
// Version and returns sentinel.ErrConflict when the stored version moved on.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (*models.Registration, error)
	Update(ctx context.Context, reg *models.Registration) error
	Stats(ctx context.Context) (models.Stats, error)
}

// VerificationGate is the part of the verification service that gates the wizard.
type VerificationGate interface {
	Authorize(ctx context.Context, token string) (*verificationModels.Grant, error)
	RequireVerified(ctx context.Context, grant verificationModels.Grant) error
	Consume(ctx context.Context, grant verificationModels.Grant) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds notification settings used by the wizard.
type Config struct {
	DispatchTimeout time.Duration
	CheckInBaseURL  string
	// MaxConflictRetries bounds re-applying a patch after a stale write.
	MaxConflictRetries int
}

const defaultConflictRetries = 3

// Service runs the registration wizard: creation behind the verification gate,
// per-section step merges and the final submission split.
type Service struct {
	store          Store
	gate           VerificationGate
	calc           models.MinimumCalculator
	notifier       notification.Port
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func() id.RegistrationID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the registration id source.
func WithIDGenerator(newID func() id.RegistrationID) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func New(store Store, gate VerificationGate, calc models.MinimumCalculator, notifier notification.Port, cfg Config, opts ...Option) *Service {
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = defaultConflictRetries
	}
	s := &Service{
		store:    store,
		gate:     gate,
		calc:     calc,
		notifier: notifier,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("alumnireg/registration"),
		newID:    id.NewRegistrationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the registration for the wizard to resume. The token must have
// been issued for the registration's identity.
func (s *Service) Get(ctx context.Context, rawID, token string) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Get")
	defer span.End()

	regID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, err
	}
	grant, err := s.gate.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	reg, err := s.find(ctx, regID)
	if err != nil {
		return nil, err
	}
	if !grant.Covers(reg.Email, reg.ContactNumber) {
		return nil, dErrors.New(dErrors.CodeForbidden, "verification token does not match this registration")
	}
	return reg, nil
}

// Find loads a registration without an identity check. It backs the operator
// surface, which has its own authentication.
func (s *Service) Find(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	return s.find(ctx, regID)
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute registration stats")
	}
	return stats, nil
}

func (s *Service) find(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := request.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	var regID id.RegistrationID
	if raw := attrs.ExtractString(attributes, "registration_id"); raw != "" {
		regID, _ = id.ParseRegistrationID(raw)
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:         string(event),
		Subject:        attrs.ExtractString(attributes, "subject"),
		RegistrationID: regID,
		Detail:         attrs.ToMap(attributes, "subject", "registration_id", "request_id"),
	})
}
