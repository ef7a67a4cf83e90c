package entity

import (
	"strings"
	"time"
)

// Account is the shared authentication envelope stored in exactly one role partition.
// Passwords are stored as bcrypt hashes in PasswordHash.
type Account struct {
	ID                string
	Email             string
	PasswordHash      string
	Role              Role
	IsAccountVerified bool
	IsActive          bool
	VerifyOTP         OTPSlot
	ResetOTP          OTPSlot
	LastLogin         time.Time
	AvatarURL         string
	Profile           Profile
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmailIndexEntry is a row of the canonical email index spanning all partitions
type EmailIndexEntry struct {
	Email     string
	Role      Role
	AccountID string
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName is the role-specific full name, falling back to the email
func (a *Account) DisplayName() string {
	if n := a.Profile.Name(); n != "" {
		return n
	}
	return a.Email
}

// Slot returns the OTP slot for purpose
func (a *Account) Slot(p OTPPurpose) *OTPSlot {
	if p == OTPReset {
		return &a.ResetOTP
	}
	return &a.VerifyOTP
}
