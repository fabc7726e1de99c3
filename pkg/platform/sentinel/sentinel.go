// Package sentinel holds the infrastructure facts stores report. Services
// translate them into domain errors; handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no row, record or key for the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a compare-and-swap lost (stale version, unique key taken,
	// transaction already applied).
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed: the verification behind a token was consumed by an earlier registration.
	ErrAlreadyUsed = errors.New("already used")
)
