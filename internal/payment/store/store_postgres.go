package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alumnireg/internal/payment/models"
	"alumnireg/internal/platform/postgres"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
	txcontext "alumnireg/pkg/platform/tx"
)

// PostgresStore persists transactions in PostgreSQL. Every query runs on the
// transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const transactionColumns = `transaction_id, registration_id, amount, payment_method, gateway_response,
	gateway_reference, purpose, is_anonymous, payer_name, payer_email, payer_contact, notes, status,
	completed_at, applied_at`

func (s *PostgresStore) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	var gatewayResponse any
	if len(txn.GatewayResponse) > 0 {
		gatewayResponse = []byte(txn.GatewayResponse)
	}
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		txn.ID.String(),
		uuid.UUID(txn.RegistrationID),
		txn.Amount,
		txn.PaymentMethod,
		gatewayResponse,
		nullString(txn.GatewayReference),
		string(txn.Purpose),
		txn.IsAnonymous,
		nullString(txn.Payer.Name),
		nullString(txn.Payer.Email),
		nullString(txn.Payer.Contact),
		nullString(txn.Notes),
		txn.Status,
		txn.CompletedAt,
		nullTime(txn.AppliedAt),
	)
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok {
			if constraint == "transactions_gateway_reference_key" {
				return ErrDuplicateReference
			}
			return fmt.Errorf("transaction %s exists: %w", txn.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, txID.String())
}

func (s *PostgresStore) FindByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	return s.findOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE gateway_reference = $1`, ref)
}

func (s *PostgresStore) ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE registration_id = $1 ORDER BY completed_at, transaction_id`
	return s.list(ctx, query, uuid.UUID(regID))
}

// ListUnapplied returns up to limit unapplied transactions, oldest first.
func (s *PostgresStore) ListUnapplied(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE applied_at IS NULL ORDER BY completed_at, transaction_id`
	if limit > 0 {
		return s.list(ctx, query+` LIMIT $1`, limit)
	}
	return s.list(ctx, query)
}

// MarkApplied only succeeds for a still-unapplied row, so two reconcilers
// racing on one transaction cannot both commit.
func (s *PostgresStore) MarkApplied(ctx context.Context, txID id.TransactionID, at time.Time) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	result, err := q.ExecContext(ctx,
		`UPDATE transactions SET applied_at = $2 WHERE transaction_id = $1 AND applied_at IS NULL`,
		txID.String(), at)
	if err != nil {
		return fmt.Errorf("mark transaction applied: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark transaction applied rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(ctx, txID); err != nil {
			return err
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// Discard deletes an unapplied transaction.
func (s *PostgresStore) Discard(ctx context.Context, txID id.TransactionID) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	result, err := q.ExecContext(ctx,
		`DELETE FROM transactions WHERE transaction_id = $1 AND applied_at IS NULL`, txID.String())
	if err != nil {
		return fmt.Errorf("discard transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("discard transaction rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(ctx, txID); err != nil {
			return err
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Summary(ctx context.Context) (models.Summary, error) {
	summary := models.NewSummary()
	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, `
		SELECT purpose, COUNT(*), COALESCE(SUM(amount), 0), COUNT(*) FILTER (WHERE applied_at IS NULL)
		FROM transactions
		GROUP BY purpose
	`)
	if err != nil {
		return summary, fmt.Errorf("summarize transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			purpose          string
			count, unapplied int
			total            int64
		)
		if err := rows.Scan(&purpose, &count, &total, &unapplied); err != nil {
			return summary, fmt.Errorf("scan transaction summary: %w", err)
		}
		summary.Count += count
		summary.Total += total
		summary.Unapplied += unapplied
		summary.ByPurpose[models.Purpose(purpose)] = total
	}
	return summary, rows.Err()
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Transaction, error) {
	txn, err := scanTransaction(txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return txn, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn             models.Transaction
		txID            string
		regID           uuid.UUID
		purpose         string
		gatewayResponse []byte
		reference       sql.NullString
		payerName       sql.NullString
		payerEmail      sql.NullString
		payerContact    sql.NullString
		notes           sql.NullString
		appliedAt       sql.NullTime
	)
	if err := row.Scan(&txID, &regID, &txn.Amount, &txn.PaymentMethod, &gatewayResponse, &reference,
		&purpose, &txn.IsAnonymous, &payerName, &payerEmail, &payerContact, &notes, &txn.Status,
		&txn.CompletedAt, &appliedAt); err != nil {
		return nil, err
	}
	txn.ID = id.TransactionID(txID)
	txn.RegistrationID = id.RegistrationID(regID)
	txn.Purpose = models.Purpose(purpose)
	txn.GatewayResponse = gatewayResponse
	txn.GatewayReference = reference.String
	txn.Payer = models.Payer{Name: payerName.String, Email: payerEmail.String, Contact: payerContact.String}
	txn.Notes = notes.String
	if appliedAt.Valid {
		at := appliedAt.Time
		txn.AppliedAt = &at
	}
	return &txn, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
