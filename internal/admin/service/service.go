// Package service backs the operator surface: registration lookups with their
// transactions, the dashboard, contribution corrections, confirmation resends
// and reconciliation.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	paymentModels "alumnireg/internal/payment/models"
	paymentService "alumnireg/internal/payment/service"
	regModels "alumnireg/internal/registration/models"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

type RegistrationReader interface {
	Find(ctx context.Context, regID id.RegistrationID) (*regModels.Registration, error)
	Stats(ctx context.Context) (regModels.Stats, error)
	ResendConfirmation(ctx context.Context, regID id.RegistrationID) error
}

type PaymentOperator interface {
	ListTransactions(ctx context.Context, regID id.RegistrationID) ([]*paymentModels.Transaction, error)
	Summary(ctx context.Context) (paymentModels.Summary, error)
	CorrectContribution(ctx context.Context, regID id.RegistrationID, total int64, reason string) (*regModels.Registration, error)
	ReconcilePending(ctx context.Context) (paymentService.ReconcileResult, error)
}

// Detail is a registration with every transaction recorded against it.
type Detail struct {
	Registration *regModels.Registration
	Transactions []*paymentModels.Transaction
}

// Dashboard combines registration and payment totals.
type Dashboard struct {
	Registrations regModels.Stats
	Payments      paymentModels.Summary
}

type Service struct {
	registrations RegistrationReader
	payments      PaymentOperator
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(registrations RegistrationReader, payments PaymentOperator, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		payments:      payments,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registration loads the registration and its transactions concurrently.
func (s *Service) Registration(ctx context.Context, rawID string) (*Detail, error) {
	regID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	detail := &Detail{}
	g.Go(func() error {
		reg, err := s.registrations.Find(ctx, regID)
		detail.Registration = reg
		return err
	})
	g.Go(func() error {
		txns, err := s.payments.ListTransactions(ctx, regID)
		detail.Transactions = txns
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// Dashboard gathers registration stats and the payment summary concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	g, ctx := errgroup.WithContext(ctx)
	dashboard := &Dashboard{}
	g.Go(func() error {
		stats, err := s.registrations.Stats(ctx)
		dashboard.Registrations = stats
		return err
	})
	g.Go(func() error {
		summary, err := s.payments.Summary(ctx)
		dashboard.Payments = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (s *Service) CorrectContribution(ctx context.Context, rawID string, total int64, reason string) (*regModels.Registration, error) {
	regID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return s.payments.CorrectContribution(ctx, regID, total, reason)
}

// ResendConfirmation asks the wizard to queue the registrant's confirmation again.
func (s *Service) ResendConfirmation(ctx context.Context, rawID string) error {
	regID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return err
	}
	if err := s.registrations.ResendConfirmation(ctx, regID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "registration confirmation resent", "registration_id", regID.String())
	return nil
}

func (s *Service) Reconcile(ctx context.Context) (paymentService.ReconcileResult, error) {
	result, err := s.payments.ReconcilePending(ctx)
	if err != nil {
		return result, err
	}
	if result.Failed > 0 {
		s.logger.WarnContext(ctx, "reconciliation left transactions unapplied", "failed", result.Failed)
	}
	return result, nil
}
