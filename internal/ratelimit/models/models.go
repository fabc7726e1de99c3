package models

import (
	"time"
)

// EndpointClass groups endpoints that share a limit.
type EndpointClass string

const (
	// ClassIssue covers code issuance (send-otp), which costs an email and a message per call.
	ClassIssue EndpointClass = "issue"
	// ClassVerify covers code checks (verify-otp).
	ClassVerify EndpointClass = "verify"
	// ClassWrite covers the remaining public mutations.
	ClassWrite EndpointClass = "write"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassIssue, ClassVerify, ClassWrite:
		return true
	}
	return false
}

// Limit is a sliding window allowance.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether the limit constrains anything.
func (l Limit) Enabled() bool {
	return l.Requests > 0 && l.Window > 0
}

// ClassLimits holds the per-client and per-identity allowance of one class.
// A zero PerIdentity skips the identity check.
type ClassLimits struct {
	PerIP       Limit
	PerIdentity Limit
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, never below one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
