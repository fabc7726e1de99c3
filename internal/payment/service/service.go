// Package service reconciles settled payments against registrations.
//
// A payment is a unit of work over two stores: the Transaction is inserted
// unapplied, its amount is added to the registration, and the Transaction is
// marked applied. A crash between the steps leaves an unapplied Transaction
// that ReconcilePending replays exactly once.
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
	"alumnireg/internal/payment/metrics"
	"alumnireg/internal/payment/models"
	regModels "alumnireg/internal/registration/models"
	"alumnireg/pkg/attrs"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	audit "alumnireg/pkg/platform/audit"
	request "alumnireg/pkg/platform/middleware/request"
	"alumnireg/pkg/platform/sentinel"
	"alumnireg/pkg/requestcontext"
)

// TransactionStore persists transactions. Create returns
// store.ErrDuplicateReference for a gateway reference seen before; MarkApplied
// returns sentinel.ErrAlreadyUsed when the transaction was applied already.
type TransactionStore interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	FindByReference(ctx context.Context, ref string) (*models.Transaction, error)
	ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]*models.Transaction, error)
	ListUnapplied(ctx context.Context, limit int) ([]*models.Transaction, error)
	MarkApplied(ctx context.Context, txID id.TransactionID, at time.Time) error
	// Discard deletes a transaction that was never applied.
	Discard(ctx context.Context, txID id.TransactionID) error
	Summary(ctx context.Context) (models.Summary, error)
}

// RegistrationStore is the slice of the registration store payments write through.
type RegistrationStore interface {
	FindByID(ctx context.Context, regID id.RegistrationID) (*regModels.Registration, error)
	Update(ctx context.Context, reg *regModels.Registration) error
}

// IDGenerator mints transaction ids.
type IDGenerator interface {
	Next() id.TransactionID
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Config struct {
	DispatchTimeout time.Duration
	// Currency is shown in payment confirmations.
	Currency string
	// MaxConflictRetries bounds re-reading a registration that moved on mid-apply.
	MaxConflictRetries int
	// ReconcileBatch caps transactions replayed per ReconcilePending call; 0 means all.
	ReconcileBatch int
}

const defaultConflictRetries = 3

type Service struct {
	tx             StoreTx
	transactions   TransactionStore
	calc           regModels.MinimumCalculator
	ids            IDGenerator
	notifier       notification.Port
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

// New builds the service. transactions serves reads outside a unit of work.
func New(tx StoreTx, transactions TransactionStore, calc regModels.MinimumCalculator, ids IDGenerator, notifier notification.Port, cfg Config, opts ...Option) *Service {
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = defaultConflictRetries
	}
	s := &Service{
		tx:           tx,
		transactions: transactions,
		calc:         calc,
		ids:          ids,
		notifier:     notifier,
		cfg:          cfg,
		logger:       slog.Default(),
		tracer:       otel.Tracer("alumnireg/payment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentCommand is a settled payment reported by the checkout callback.
type PaymentCommand struct {
	RegistrationRef  string
	Amount           int64
	PaymentMethod    string
	GatewayResponse  []byte
	GatewayReference string
	Purpose          string
	IsAnonymous      bool
	Payer            models.Payer
	Notes            string
}

// RecordPayment stores the payment and applies it to the registration in one
// unit of work. A gateway reference seen before returns the stored
// transaction with Replayed set and changes nothing.
func (s *Service) RecordPayment(ctx context.Context, cmd PaymentCommand) (*models.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "payment.RecordPayment")
	defer span.End()

	regID, err := id.ParseRegistrationID(cmd.RegistrationRef)
	if err != nil {
		return nil, err
	}
	ref := cmd.GatewayReference
	if ref == "" {
		ref = models.GatewayReferenceFrom(cmd.GatewayResponse)
	}
	now := requestcontext.Now(ctx)
	txn, err := models.NewTransaction(s.ids.Next(), models.NewTransactionInput{
		RegistrationID:   regID,
		Amount:           cmd.Amount,
		PaymentMethod:    cmd.PaymentMethod,
		GatewayResponse:  cmd.GatewayResponse,
		GatewayReference: ref,
		Purpose:          models.Purpose(cmd.Purpose),
		IsAnonymous:      cmd.IsAnonymous,
		Payer:            cmd.Payer,
		Notes:            cmd.Notes,
	}, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("registration_id", regID.String()),
		attribute.String("purpose", string(txn.Purpose)),
	)

	var (
		receipt *models.Receipt
		reg     *regModels.Registration
	)
	err = s.tx.RunInTx(withRegistration(ctx, regID), func(ctx context.Context, stores Stores) error {
		if txn.GatewayReference != "" {
			existing, err := stores.Transactions.FindByReference(ctx, txn.GatewayReference)
			switch {
			case err == nil:
				if existing.RegistrationID != regID {
					return dErrors.New(dErrors.CodeConflict, "gateway reference already recorded for another registration")
				}
				reg, err = loadRegistration(ctx, stores, regID)
				if err != nil {
					return err
				}
				receipt = newReceipt(existing, reg, true)
				return nil
			case !errors.Is(err, sentinel.ErrNotFound):
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up gateway reference")
			}
		}

		reg, err = loadRegistration(ctx, stores, regID)
		if err != nil {
			return err
		}
		if err := stores.Transactions.Create(ctx, txn); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "payment is already being recorded")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transaction")
		}
		if txn.AffectsRegistration() {
			var credited bool
			if reg, credited, err = s.apply(ctx, stores, txn, now); err != nil {
				if !credited && txn.GatewayReference == "" {
					s.discard(ctx, stores, txn)
				}
				return err
			}
		}
		receipt = newReceipt(txn, reg, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if receipt.Replayed {
		s.metrics.IncrementPayment(string(txn.Purpose), "replayed", txn.Amount)
		s.logger.InfoContext(ctx, "payment callback replayed",
			"registration_id", regID.String(),
			"transaction_id", receipt.Transaction.ID.String(),
		)
		return receipt, nil
	}

	s.metrics.IncrementPayment(string(txn.Purpose), "recorded", txn.Amount)
	s.logAudit(ctx, audit.EventPaymentRecorded,
		"registration_id", regID.String(),
		"subject", reg.Email.String(),
		"transaction_id", txn.ID.String(),
		"amount", txn.Amount,
		"purpose", string(txn.Purpose),
		"contribution_total", reg.ContributionTotal,
	)
	if !txn.IsAnonymous {
		s.notifyPayment(ctx, txn, reg)
	}
	return receipt, nil
}

// ReconcileResult counts one reconciliation pass.
type ReconcileResult struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// ReconcilePending applies transactions that were recorded but never reached
// their registration. Each is applied at most once; failures are logged and
// left for the next pass.
func (s *Service) ReconcilePending(ctx context.Context) (ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.ReconcilePending")
	defer span.End()

	var result ReconcileResult
	pending, err := s.transactions.ListUnapplied(ctx, s.cfg.ReconcileBatch)
	if err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list unapplied transactions")
	}
	now := requestcontext.Now(ctx)
	for _, pendingTxn := range pending {
		var reg *regModels.Registration
		err := s.tx.RunInTx(withRegistration(ctx, pendingTxn.RegistrationID), func(ctx context.Context, stores Stores) error {
			current, err := stores.Transactions.FindByID(ctx, pendingTxn.ID)
			if err != nil {
				return err
			}
			if current.Applied() {
				return sentinel.ErrAlreadyUsed
			}
			reg, _, err = s.apply(ctx, stores, current, now)
			return err
		})
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			continue
		}
		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "failed to reconcile transaction",
				"transaction_id", pendingTxn.ID.String(),
				"registration_id", pendingTxn.RegistrationID.String(),
				"error", err,
			)
			continue
		}
		result.Applied++
		s.metrics.IncrementReconciled()
		s.logAudit(ctx, audit.EventPaymentRecorded,
			"registration_id", pendingTxn.RegistrationID.String(),
			"subject", reg.Email.String(),
			"transaction_id", pendingTxn.ID.String(),
			"amount", pendingTxn.Amount,
			"purpose", string(pendingTxn.Purpose),
			"contribution_total", reg.ContributionTotal,
			"reconciled", true,
		)
	}
	span.SetAttributes(attribute.Int("applied", result.Applied), attribute.Int("failed", result.Failed))
	if result.Applied > 0 || result.Failed > 0 {
		s.logger.InfoContext(ctx, "reconciled pending transactions",
			"applied", result.Applied,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// CorrectContribution sets a registration's cumulative contribution. It is
// the operator path and the only one allowed to lower the total.
func (s *Service) CorrectContribution(ctx context.Context, regID id.RegistrationID, total int64, reason string) (*regModels.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "payment.CorrectContribution")
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		reg      *regModels.Registration
		previous int64
	)
	err := s.tx.RunInTx(withRegistration(ctx, regID), func(ctx context.Context, stores Stores) error {
		for range s.cfg.MaxConflictRetries {
			current, err := loadRegistration(ctx, stores, regID)
			if err != nil {
				return err
			}
			previous = current.ContributionTotal
			if err := current.CorrectContribution(total, s.calc, now); err != nil {
				return err
			}
			err = stores.Registrations.Update(ctx, current)
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
			}
			reg = current
			return nil
		}
		return dErrors.New(dErrors.CodeConflict, "registration changed concurrently, retry")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCorrection()
	s.logAudit(ctx, audit.EventContributionCorrected,
		"registration_id", regID.String(),
		"subject", reg.Email.String(),
		"previous_total", previous,
		"contribution_total", total,
		"reason", reason,
	)
	return reg, nil
}

// ListTransactions returns a registration's transactions, oldest first.
func (s *Service) ListTransactions(ctx context.Context, regID id.RegistrationID) ([]*models.Transaction, error) {
	txns, err := s.transactions.ListByRegistration(ctx, regID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return txns, nil
}

func (s *Service) Summary(ctx context.Context) (models.Summary, error) {
	summary, err := s.transactions.Summary(ctx)
	if err != nil {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize transactions")
	}
	return summary, nil
}

// apply adds txn to its registration and marks it applied, re-reading the
// registration when a concurrent writer moved its version on. credited reports
// whether the registration update was written before an error.
func (s *Service) apply(ctx context.Context, stores Stores, txn *models.Transaction, now time.Time) (*regModels.Registration, bool, error) {
	for range s.cfg.MaxConflictRetries {
		reg, err := loadRegistration(ctx, stores, txn.RegistrationID)
		if err != nil {
			return nil, false, err
		}
		if err := reg.CanApplyPayment(txn.Amount); err != nil {
			return nil, false, err
		}
		reg.ApplyPayment(txn.ID, txn.Amount, s.calc, now)
		err = stores.Registrations.Update(ctx, reg)
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.WarnContext(ctx, "registration changed while applying payment, retrying",
				"registration_id", txn.RegistrationID.String(),
				"transaction_id", txn.ID.String(),
			)
			continue
		}
		if err != nil {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply payment to registration")
		}
		if err := stores.Transactions.MarkApplied(ctx, txn.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return nil, true, err
			}
			return nil, true, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark transaction applied")
		}
		applied := now
		txn.AppliedAt = &applied
		return reg, true, nil
	}
	return nil, false, dErrors.New(dErrors.CodeConflict, "registration changed concurrently, retry")
}

// discard removes a transaction that never reached its registration. Without a
// gateway reference a retried call cannot be matched to it, so leaving it for
// ReconcilePending would count the payment twice. In Postgres the rollback
// already removed it.
func (s *Service) discard(ctx context.Context, stores Stores, txn *models.Transaction) {
	if err := stores.Transactions.Discard(ctx, txn.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "unapplied transaction not discarded",
			"transaction_id", txn.ID.String(),
			"registration_id", txn.RegistrationID.String(),
			"error", err,
		)
	}
}

func loadRegistration(ctx context.Context, stores Stores, regID id.RegistrationID) (*regModels.Registration, error) {
	reg, err := stores.Registrations.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func newReceipt(txn *models.Transaction, reg *regModels.Registration, replayed bool) *models.Receipt {
	return &models.Receipt{
		Transaction:        txn,
		ContributionTotal:  reg.ContributionTotal,
		PaymentStatus:      string(reg.PaymentStatus),
		RegistrationStatus: string(reg.RegistrationStatus),
		Replayed:           replayed,
	}
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
