// Package domain holds typed identifiers and identity primitives shared across
// bounded contexts. Parsing happens at trust boundaries; everything downstream
// works with the typed values.
package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "alumnireg/pkg/domain-errors"
)

// RegistrationID identifies a Registration aggregate.
type RegistrationID uuid.UUID

// VerificationID identifies one issued verification record.
type VerificationID uuid.UUID

// TransactionID identifies one payment transaction ("TXN-<snowflake>").
type TransactionID string

const transactionPrefix = "TXN-"

// NewRegistrationID returns a random registration id.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewVerificationID returns a random verification id.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id RegistrationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id VerificationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TransactionID) String() string { return string(id) }

// MarshalText lets typed ids render as plain strings in JSON.
func (id RegistrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RegistrationID) UnmarshalText(b []byte) error {
	parsed, err := ParseRegistrationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id VerificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *VerificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseVerificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseRegistrationID parses a non-nil UUID.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration_id")
	return RegistrationID(u), err
}

// ParseVerificationID parses a non-nil UUID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification_id")
	return VerificationID(u), err
}

// ParseTransactionID accepts "TXN-" followed by 1..32 digits.
func ParseTransactionID(s string) (TransactionID, error) {
	digits, ok := strings.CutPrefix(s, transactionPrefix)
	if !ok || digits == "" || len(digits) > 32 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid transaction_id")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid transaction_id")
		}
	}
	return TransactionID(s), nil
}

// NewTransactionID formats a generated numeric id as a TransactionID.
func NewTransactionID(n int64) TransactionID {
	return TransactionID(transactionPrefix + strconv.FormatInt(n, 10))
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" || len(s) > 64 || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	return u, nil
}
