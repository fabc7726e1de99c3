package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"alumnireg/internal/notification"
	"alumnireg/internal/verification/codes"
	"alumnireg/internal/verification/metrics"
	"alumnireg/internal/verification/models"
	"alumnireg/internal/verification/store"
	"alumnireg/pkg/attrs"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/email"
	audit "alumnireg/pkg/platform/audit"
	request "alumnireg/pkg/platform/middleware/request"
	"alumnireg/pkg/platform/sentinel"
	"alumnireg/pkg/requestcontext"
)

type RecordStore interface {
	Replace(ctx context.Context, rec *models.Record) error
	FindByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (*models.Record, error)
	Execute(ctx context.Context, email id.Email, contact id.ContactNumber, fn store.AttemptFunc) error
	Delete(ctx context.Context, recordID id.VerificationID) error
}

// TokenIssuer signs and parses verification tokens.
type TokenIssuer interface {
	Issue(grant models.Grant, expiresIn time.Duration) (string, error)
	Parse(token string) (*models.Grant, error)
}

// RegistrationFinder reports whether an identity already has a registration.
// It returns sentinel.ErrNotFound when there is none.
type RegistrationFinder interface {
	FindIDByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (id.RegistrationID, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the gate's policy knobs.
type Config struct {
	CodeLength      int
	ValidityWindow  time.Duration
	MaxAttempts     int
	TokenTTL        time.Duration
	DispatchTimeout time.Duration
	// ExposeCode returns the plaintext code in the response. Never set in production.
	ExposeCode bool
}

// Service issues and checks one-time codes.
type Service struct {
	records        RecordStore
	tokens         TokenIssuer
	registrations  RegistrationFinder
	notifier       notification.Port
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	generate       func(length int) (string, error)
	hash           func(code string) (string, error)
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

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(generate func(length int) (string, error)) Option {
	return func(s *Service) {
		s.generate = generate
	}
}

// WithHasher replaces the code hash function.
func WithHasher(hash func(code string) (string, error)) Option {
	return func(s *Service) {
		s.hash = hash
	}
}

func New(records RecordStore, tokens TokenIssuer, registrations RegistrationFinder, notifier notification.Port, cfg Config, opts ...Option) *Service {
	s := &Service{
		records:       records,
		tokens:        tokens,
		registrations: registrations,
		notifier:      notifier,
		cfg:           cfg,
		logger:        slog.Default(),
		tracer:        otel.Tracer("alumnireg/verification"),
		generate:      codes.Generate,
		hash:          codes.Hash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCode issues a fresh code for the pair, superseding any record that
// holds either identifier, and hands the code to the email and messaging
// channels. Delivery failures do not fail the request.
func (s *Service) RequestCode(ctx context.Context, rawEmail, rawContact string) (*models.Issued, error) {
	ctx, span := s.tracer.Start(ctx, "verification.RequestCode")
	defer span.End()

	emailAddr, contact, err := parseIdentity(rawEmail, rawContact)
	if err != nil {
		return nil, err
	}

	code, err := s.generate(s.cfg.CodeLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	codeHash, err := s.hash(code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	now := requestcontext.Now(ctx)
	rec, err := models.NewRecord(id.NewVerificationID(), emailAddr, contact, codeHash, models.Requester{
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Device:    requestcontext.Device(ctx),
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build verification record")
	}
	if err := s.records.Replace(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification record")
	}
	span.SetAttributes(attribute.String("verification.id", rec.ID.String()))

	s.dispatchCode(ctx, rec, code, now)
	s.metrics.IncrementIssued()
	s.logAudit(ctx, audit.EventVerificationCodeIssued,
		"subject", emailAddr.String(),
		"verification_id", rec.ID.String(),
		"device", rec.Device,
	)

	issued := &models.Issued{RecordID: rec.ID}
	if s.cfg.ExposeCode {
		issued.Code = code
	}
	return issued, nil
}

func (s *Service) dispatchCode(ctx context.Context, rec *models.Record, code string, now time.Time) {
	data := map[string]string{
		"code":             code,
		"validity_minutes": notification.ValidityMinutes(s.cfg.ValidityWindow),
		"name":             email.GreetingName(rec.Email.String()),
	}
	err := notification.EnqueueAll(ctx, s.notifier, s.cfg.DispatchTimeout,
		notification.NewIntent(notification.KindVerificationCode, notification.ChannelEmail, rec.Email.String(), data, now),
		notification.NewIntent(notification.KindVerificationCode, notification.ChannelMessaging, rec.ContactNumber.String(), data, now),
	)
	if err != nil {
		s.metrics.IncrementDispatchFailure()
		s.logger.WarnContext(ctx, "verification code dispatch failed",
			"verification_id", rec.ID.String(),
			"error", err,
		)
	}
}

// VerifyCode checks code against the record for the pair. The attempt counter
// is incremented before comparing; exceeding the limit deletes the record.
// A record that is already verified accepts its code again without counting
// an attempt and returns a fresh token.
func (s *Service) VerifyCode(ctx context.Context, rawEmail, rawContact, code string) (*models.Result, error) {
	ctx, span := s.tracer.Start(ctx, "verification.VerifyCode")
	defer span.End()

	emailAddr, contact, err := parseIdentity(rawEmail, rawContact)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "otp is required")
	}

	now := requestcontext.Now(ctx)
	var (
		verified models.Record
		reissued bool
	)
	err = s.records.Execute(ctx, emailAddr, contact, func(rec *models.Record) (models.Action, error) {
		if rec.Verified {
			if err := codes.Verify(code, rec.CodeHash); err == nil {
				verified = *rec
				reissued = true
				return models.ActionKeep, nil
			}
		} else if rec.IsExpired(now, s.cfg.ValidityWindow) {
			return models.ActionKeep, dErrors.New(dErrors.CodeExpired, "verification code has expired")
		}

		if rec.RecordAttempt(s.cfg.MaxAttempts) {
			return models.ActionDelete, dErrors.New(dErrors.CodeAttemptsExhausted, "maximum attempts exceeded, request a new code")
		}
		if err := codes.Verify(code, rec.CodeHash); err != nil {
			if !errors.Is(err, codes.ErrMismatch) {
				return models.ActionKeep, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check code")
			}
			remaining := rec.RemainingAttempts(s.cfg.MaxAttempts)
			return models.ActionSave, dErrors.WithMeta(
				dErrors.New(dErrors.CodeInvalidCode, "invalid verification code"),
				"remaining_attempts", remaining)
		}
		rec.MarkVerified(now)
		verified = *rec
		return models.ActionSave, nil
	})
	if err != nil {
		return nil, s.verifyFailure(ctx, emailAddr, err)
	}

	token, err := s.tokens.Issue(verified.Grant(), s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue verification token")
	}

	result := &models.Result{Verified: true, Token: token}
	regID, err := s.registrations.FindIDByIdentity(ctx, emailAddr, contact)
	switch {
	case err == nil:
		result.ExistingRegistration = true
		result.RegistrationID = &regID
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up registration")
	}

	outcome := "verified"
	if reissued {
		outcome = "reissued"
	}
	s.metrics.IncrementOutcome(outcome)
	s.logAudit(ctx, audit.EventVerificationSucceeded,
		"subject", emailAddr.String(),
		"verification_id", verified.ID.String(),
		"existing_registration", result.ExistingRegistration,
	)
	return result, nil
}

func (s *Service) verifyFailure(ctx context.Context, emailAddr id.Email, err error) error {
	subject := emailAddr.String()
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementOutcome("not_found")
		return dErrors.New(dErrors.CodeNotFound, "no verification found for this email or contact number")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "verification is busy, retry")
	case dErrors.HasCode(err, dErrors.CodeExpired):
		s.metrics.IncrementOutcome("expired")
		s.logAudit(ctx, audit.EventVerificationFailed, "subject", subject, "reason", "expired")
	case dErrors.HasCode(err, dErrors.CodeAttemptsExhausted):
		s.metrics.IncrementOutcome("exhausted")
		s.logAudit(ctx, audit.EventVerificationExhausted, "subject", subject)
	case dErrors.HasCode(err, dErrors.CodeInvalidCode):
		s.metrics.IncrementOutcome("invalid_code")
		s.logAudit(ctx, audit.EventVerificationFailed, "subject", subject, "reason", "invalid_code")
	default:
		if _, ok := dErrors.As(err); !ok {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
		}
	}
	return err
}

// Authorize parses a verification token into the grant it carries. It does
// not touch the store, so tokens stay usable after the record is consumed.
func (s *Service) Authorize(_ context.Context, token string) (*models.Grant, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "verification token is required")
	}
	return s.tokens.Parse(token)
}

// RequireVerified checks that the grant's record still exists and is verified.
// This is what gates registration creation.
func (s *Service) RequireVerified(ctx context.Context, grant models.Grant) error {
	rec, err := s.records.FindByIdentity(ctx, grant.Email, grant.ContactNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "identity is not verified")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if rec.ID != grant.VerificationID || !rec.Verified || !grant.Covers(rec.Email, rec.ContactNumber) {
		return dErrors.New(dErrors.CodeUnauthorized, "identity is not verified")
	}
	return nil
}

// Consume deletes the grant's record so it cannot gate a second registration.
func (s *Service) Consume(ctx context.Context, grant models.Grant) error {
	if err := s.records.Delete(ctx, grant.VerificationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume verification")
	}
	return nil
}

func parseIdentity(rawEmail, rawContact string) (id.Email, id.ContactNumber, error) {
	emailAddr, err := id.ParseEmail(rawEmail)
	if err != nil {
		return "", "", err
	}
	contact, err := id.ParseContactNumber(rawContact)
	if err != nil {
		return "", "", err
	}
	return emailAddr, contact, nil
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
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:  string(event),
		Subject: attrs.ExtractString(attributes, "subject"),
		Detail:  attrs.ToMap(attributes, "subject", "request_id"),
	})
}
