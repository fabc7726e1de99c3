package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "alumnireg/pkg/domain"
	audit "alumnireg/pkg/platform/audit"
	txcontext "alumnireg/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Appends join the
// caller's transaction when one is carried by the context.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var detail []byte
	if len(event.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(event.Detail); err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	var regID *uuid.UUID
	if !event.RegistrationID.IsNil() {
		u := uuid.UUID(event.RegistrationID)
		regID = &u
	}

	query := `
		INSERT INTO audit_events (id, category, action, registration_id, subject, detail, request_id, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Action,
		regID,
		event.Subject,
		detail,
		event.RequestID,
		event.ClientIP,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRegistration returns events for one registration, oldest first.
func (s *Store) ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]audit.Event, error) {
	query := `
		SELECT category, action, registration_id, subject, detail, request_id, client_ip, created_at
		FROM audit_events
		WHERE registration_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(regID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                            audit.Event
			category                     string
			registration                 uuid.NullUUID
			subject, requestID, clientIP sql.NullString
			detail                       []byte
		)
		if err := rows.Scan(&category, &e.Action, &registration, &subject, &detail, &requestID, &clientIP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if registration.Valid {
			e.RegistrationID = id.RegistrationID(registration.UUID)
		}
		e.Subject = subject.String
		e.RequestID = requestID.String
		e.ClientIP = clientIP.String
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
