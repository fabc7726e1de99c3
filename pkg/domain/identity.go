package domain

import (
	"net/mail"
	"regexp"
	"strings"

	dErrors "alumnireg/pkg/domain-errors"
)

// Email is a normalized (trimmed, lower-cased) email address.
type Email string

// ContactNumber is a normalized phone number: digits with a leading '+'.
type ContactNumber string

var (
	contactAllowed = regexp.MustCompile(`^[0-9+\-\s().]+$`)
	contactE164    = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	contactStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")
)

func (e Email) String() string         { return string(e) }
func (c ContactNumber) String() string { return string(c) }

// ParseEmail trims, validates and lower-cases an email address.
func ParseEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(s) > 254 {
		return "", dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	return Email(strings.ToLower(addr.Address)), nil
}

// ParseContactNumber strips separators, rewrites a "00" international prefix to
// "+", ensures a leading "+" and checks the E.164 shape.
func ParseContactNumber(s string) (ContactNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "contact_number is required")
	}
	if !contactAllowed.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "contact_number must contain only digits and separators")
	}
	s = contactStrip.Replace(s)
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	if !contactE164.MatchString(s) {
		return "", dErrors.New(dErrors.CodeValidation, "contact_number must be an international number")
	}
	return ContactNumber(s), nil
}
