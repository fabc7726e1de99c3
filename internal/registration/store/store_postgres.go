package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"alumnireg/internal/platform/postgres"
	"alumnireg/internal/registration/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
	txcontext "alumnireg/pkg/platform/tx"
)

// PostgresStore persists registrations in PostgreSQL. The form is a JSONB
// document; identity, wizard state and payment state are columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, email, contact_number, verification_id, form, current_step, steps_complete,
	form_submission_complete, registration_status, payment_status, contribution_total, payment_id,
	registration_date, last_updated, version`

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	form, err := json.Marshal(reg.Form)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(reg.ID),
		reg.Email.String(),
		reg.ContactNumber.String(),
		uuid.UUID(reg.VerificationID),
		form,
		reg.CurrentStep,
		int16(reg.Steps),
		reg.FormSubmissionComplete,
		string(reg.RegistrationStatus),
		string(reg.PaymentStatus),
		reg.ContributionTotal,
		nullString(reg.PaymentID),
		reg.RegistrationDate,
		reg.LastUpdated,
		reg.Version,
	)
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok {
			if constraint == "registrations_pkey" {
				return fmt.Errorf("registration %s exists: %w", reg.ID, sentinel.ErrConflict)
			}
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(regID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration by id: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (*models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE email = $1 OR contact_number = $2
		ORDER BY (email = $1) DESC
		LIMIT 1
	`
	reg, err := scanRegistration(txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, email.String(), contact.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration by identity: %w", err)
	}
	return reg, nil
}

// Update writes reg when the stored version matches reg.Version and bumps it.
func (s *PostgresStore) Update(ctx context.Context, reg *models.Registration) error {
	form, err := json.Marshal(reg.Form)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}
	query := `
		UPDATE registrations SET
			form = $3,
			current_step = $4,
			steps_complete = $5,
			form_submission_complete = $6,
			registration_status = $7,
			payment_status = $8,
			contribution_total = $9,
			payment_id = $10,
			last_updated = $11,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	q := txcontext.QuerierFrom(ctx, s.db)
	result, err := q.ExecContext(ctx, query,
		uuid.UUID(reg.ID),
		reg.Version,
		form,
		reg.CurrentStep,
		int16(reg.Steps),
		reg.FormSubmissionComplete,
		string(reg.RegistrationStatus),
		string(reg.PaymentStatus),
		reg.ContributionTotal,
		nullString(reg.PaymentID),
		reg.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, uuid.UUID(reg.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check registration exists: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("registration %s version %d: %w", reg.ID, reg.Version, sentinel.ErrConflict)
	}
	reg.Version++
	return nil
}

// attendeePaths are the JSON paths summed into the attendee total.
var attendeePaths = func() []string {
	var out []string
	for _, bracket := range []string{"adults", "teens", "children", "toddlers"} {
		for _, meal := range []string{"veg", "nonVeg"} {
			out = append(out, fmt.Sprintf("COALESCE((form #>> '{eventAttendance,attendees,%s,%s}')::int, 0)", bracket, meal))
		}
	}
	return out
}()

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	stats := models.NewStats()
	attending := `COALESCE((form #>> '{eventAttendance,isAttending}')::boolean, FALSE)`
	totals := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE form_submission_complete),
			COUNT(*) FILTER (WHERE ` + attending + `),
			COALESCE(SUM(` + strings.Join(attendeePaths, " + ") + `) FILTER (WHERE ` + attending + `), 0),
			COUNT(*) FILTER (WHERE form_submission_complete AND registration_status = $1
				AND COALESCE((form #>> '{financial,hardshipDeclined}')::boolean, FALSE)),
			COALESCE(SUM(contribution_total), 0)::bigint
		FROM registrations
	`
	err := s.db.QueryRowContext(ctx, totals, string(models.RegistrationIncomplete)).Scan(
		&stats.Total,
		&stats.Submitted,
		&stats.Attending,
		&stats.TotalAttendees,
		&stats.Hardship,
		&stats.ContributionTotal,
	)
	if err != nil {
		return models.Stats{}, fmt.Errorf("registration totals: %w", err)
	}

	byType := `
		SELECT COALESCE(NULLIF(form #>> '{personalInfo,registrationType}', ''), $1), COUNT(*)
		FROM registrations
		GROUP BY 1
	`
	if err := s.groupCounts(ctx, byType, func(key string, n int) {
		stats.ByRegistrationType[key] = n
	}, models.DefaultRegistrationType); err != nil {
		return models.Stats{}, fmt.Errorf("registrations by type: %w", err)
	}

	byPayment := `SELECT payment_status, COUNT(*) FROM registrations GROUP BY payment_status`
	if err := s.groupCounts(ctx, byPayment, func(key string, n int) {
		stats.ByPaymentStatus[models.PaymentStatus(key)] = n
	}); err != nil {
		return models.Stats{}, fmt.Errorf("registrations by payment status: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) groupCounts(ctx context.Context, query string, add func(string, int), args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		add(key, n)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		regID, verificationID uuid.UUID
		email, contact        string
		form                  []byte
		steps                 int16
		regStatus, payStatus  string
		paymentID             sql.NullString
		registered, updated   time.Time
		reg                   models.Registration
	)
	err := row.Scan(
		&regID,
		&email,
		&contact,
		&verificationID,
		&form,
		&reg.CurrentStep,
		&steps,
		&reg.FormSubmissionComplete,
		&regStatus,
		&payStatus,
		&reg.ContributionTotal,
		&paymentID,
		&registered,
		&updated,
		&reg.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(form, &reg.Form); err != nil {
		return nil, fmt.Errorf("unmarshal form: %w", err)
	}
	reg.ID = id.RegistrationID(regID)
	reg.VerificationID = id.VerificationID(verificationID)
	reg.Email = id.Email(email)
	reg.ContactNumber = id.ContactNumber(contact)
	reg.Steps = models.StepSet(steps)
	reg.RegistrationStatus = models.RegistrationStatus(regStatus)
	reg.PaymentStatus = models.PaymentStatus(payStatus)
	reg.PaymentID = paymentID.String
	reg.RegistrationDate = registered.UTC()
	reg.LastUpdated = updated.UTC()
	return &reg, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
