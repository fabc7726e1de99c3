// Package models holds the verification record and the grant a successful
// verification produces.
package models

import (
	"time"

	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

// Record is one issued code bound to an (email, contact number) pair. The
// plaintext code is never stored.
type Record struct {
	ID            id.VerificationID `json:"id"`
	Email         id.Email          `json:"email"`
	ContactNumber id.ContactNumber  `json:"contact_number"`
	CodeHash      string            `json:"code_hash"`
	Attempts      int               `json:"attempts"`
	Verified      bool              `json:"verified"`
	CreatedAt     time.Time         `json:"created_at"`
	VerifiedAt    *time.Time        `json:"verified_at,omitempty"`
	RequesterIP   string            `json:"requester_ip,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	Device        string            `json:"device,omitempty"`
}

// Requester describes who asked for the code.
type Requester struct {
	IP        string
	UserAgent string
	Device    string
}

// NewRecord issues a fresh, unverified record with zero attempts.
func NewRecord(recordID id.VerificationID, email id.Email, contact id.ContactNumber, codeHash string, requester Requester, now time.Time) (*Record, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification id is required")
	}
	if email == "" || contact == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email and contact number are required")
	}
	if codeHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code hash is required")
	}
	return &Record{
		ID:            recordID,
		Email:         email,
		ContactNumber: contact,
		CodeHash:      codeHash,
		CreatedAt:     now,
		RequesterIP:   requester.IP,
		UserAgent:     requester.UserAgent,
		Device:        requester.Device,
	}, nil
}

// IsExpired reports whether the record was issued more than window ago.
func (r *Record) IsExpired(now time.Time, window time.Duration) bool {
	return now.Sub(r.CreatedAt) > window
}

// RecordAttempt counts one verification attempt and reports whether the limit
// is now exceeded.
func (r *Record) RecordAttempt(maxAttempts int) (exhausted bool) {
	r.Attempts++
	return r.Attempts > maxAttempts
}

// RemainingAttempts is what the registrant may still try before the record is
// deleted.
func (r *Record) RemainingAttempts(maxAttempts int) int {
	return max(maxAttempts-r.Attempts, 0)
}

func (r *Record) MarkVerified(now time.Time) {
	r.Verified = true
	r.VerifiedAt = &now
}

// Grant returns the identity binding proven by a verified record.
func (r *Record) Grant() Grant {
	return Grant{VerificationID: r.ID, Email: r.Email, ContactNumber: r.ContactNumber}
}

// Action tells a store what to do with a record after an atomic callback.
type Action int

const (
	ActionKeep Action = iota
	ActionSave
	ActionDelete
)

// Grant is what a verification token proves: the holder controlled both
// identifiers of this verification.
type Grant struct {
	VerificationID id.VerificationID
	Email          id.Email
	ContactNumber  id.ContactNumber
}

// Covers reports whether the grant was issued for exactly this identity.
func (g Grant) Covers(email id.Email, contact id.ContactNumber) bool {
	return g.Email == email && g.ContactNumber == contact
}

// Result is the outcome of a successful verification.
type Result struct {
	Verified             bool
	Token                string
	ExistingRegistration bool
	RegistrationID       *id.RegistrationID
}

// Issued is the outcome of a code request. Code is only populated outside
// production.
type Issued struct {
	RecordID id.VerificationID
	Code     string
}
