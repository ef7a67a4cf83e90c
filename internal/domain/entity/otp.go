package entity

import (
	"crypto/subtle"
	"strings"
	"time"
)

// OTPPurpose names one of the two independent code slots on an account
type OTPPurpose string

const (
	OTPVerify OTPPurpose = "verify"
	OTPReset  OTPPurpose = "reset"
)

// OTPOutcome is the result of checking a supplied code against a slot
type OTPOutcome int

const (
	OTPInvalid OTPOutcome = iota
	OTPValid
	OTPExpired
)

func (o OTPOutcome) String() string {
	switch o {
	case OTPValid:
		return "valid"
	case OTPExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// OTPSlot holds a one-time code and its expiry. Code and expiry are always
// set and cleared together.
type OTPSlot struct {
	code      string
	expiresAt time.Time
}

// RestoreOTPSlot rebuilds a slot from persisted columns. A half-set pair
// restores as an empty slot.
func RestoreOTPSlot(code string, expiresAt time.Time) OTPSlot {
	if code == "" || expiresAt.IsZero() {
		return OTPSlot{}
	}
	return OTPSlot{code: code, expiresAt: expiresAt}
}

// Issue overwrites the slot with a new code valid for ttl from now
func (s *OTPSlot) Issue(code string, now time.Time, ttl time.Duration) {
	if code == "" {
		s.Clear()
		return
	}
	s.code = code
	s.expiresAt = now.Add(ttl)
}

// Clear empties the slot
func (s *OTPSlot) Clear() {
	s.code = ""
	s.expiresAt = time.Time{}
}

func (s OTPSlot) Code() string         { return s.code }
func (s OTPSlot) ExpiresAt() time.Time { return s.expiresAt }
func (s OTPSlot) IsEmpty() bool        { return s.code == "" }

// Check compares supplied against the stored code. Surrounding whitespace in
// supplied is ignored; the digits themselves must match exactly. A matching
// code whose expiry is strictly before now is OTPExpired.
func (s OTPSlot) Check(supplied string, now time.Time) OTPOutcome {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" || s.code == "" {
		return OTPInvalid
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.code)) != 1 {
		return OTPInvalid
	}
	if s.expiresAt.Before(now) {
		return OTPExpired
	}
	return OTPValid
}
