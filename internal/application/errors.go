package application

import (
	"errors"

	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidRole        = errors.New("invalid role")
	ErrDuplicateEmail     = errors.New("user already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified")
	ErrSuspended          = errors.New("account is suspended")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrNotificationFailed = errors.New("failed to send email")
	ErrStorageUnavailable = errors.New("object storage not configured")
)

// mapStoreError converts repository sentinels to service errors and leaves
// everything else for the caller to wrap as internal.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrDuplicateEmail
	}
	return err
}
