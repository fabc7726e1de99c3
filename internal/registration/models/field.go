package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	dErrors "alumnireg/pkg/domain-errors"
)

// Field is one optional value in a section patch.
//
// A key missing from the payload and a key sent as null both decode to an unset
// Field, which leaves the stored value alone. Any other value, including the
// zero value ("", 0, false, []), is set and overwrites the stored value; that is
// how a client clears a field.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the value and whether it was present in the payload.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field was present with a non-null value.
func (f Field[T]) IsSet() bool { return f.set }

// IsZero lets `omitzero` drop unset fields when a patch is re-encoded.
func (f Field[T]) IsZero() bool { return !f.set }

// ApplyTo copies the value into dst when set.
func (f Field[T]) ApplyTo(dst *T) {
	if f.set {
		*dst = f.value
	}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Field[T]{value: v, set: true}
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Amount is a whole-currency amount. Wizard clients send it either as a JSON
// number or as a numeric string.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	n, err := flexibleInt(b, "amount")
	if err != nil {
		return err
	}
	*a = Amount(n)
	return nil
}

// Year is a graduation year, accepted as a number or a numeric string.
type Year int

func (y *Year) UnmarshalJSON(b []byte) error {
	n, err := flexibleInt(b, "yearOfPassing")
	if err != nil {
		return err
	}
	*y = Year(n)
	return nil
}

func flexibleInt(b []byte, field string) (int64, error) {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), nil
	}
	return 0, dErrors.New(dErrors.CodeValidation, field+" must be a whole number")
}
