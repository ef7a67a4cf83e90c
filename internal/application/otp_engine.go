package application

import (
	"context"
	"fmt"
	"time"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	repo "github.com/oksasatya/healthcare-identity/internal/domain/repository"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

// DefaultOTPTTL is how long an issued code stays valid
const DefaultOTPTTL = 3 * time.Minute

// OTPEngine issues and checks the verify and reset codes stored on accounts.
// Concurrent issues on the same slot race; the last persisted code wins.
type OTPEngine struct {
	Repo     repo.AccountRepository
	TTL      time.Duration
	Now      func() time.Time
	Generate func() (string, error)
}

func NewOTPEngine(r repo.AccountRepository, ttl time.Duration) *OTPEngine {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPEngine{Repo: r, TTL: ttl, Now: time.Now, Generate: helpers.GenOTPCode}
}

// Issue overwrites the slot for purpose with a fresh code, persists the
// account and returns the code for delivery.
func (e *OTPEngine) Issue(ctx context.Context, purpose entity.OTPPurpose, a *entity.Account) (string, error) {
	if purpose == entity.OTPVerify && a.IsAccountVerified {
		return "", ErrAlreadyVerified
	}
	code, err := e.Generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	a.Slot(purpose).Issue(code, e.Now(), e.TTL)
	if err := e.Repo.Update(ctx, a); err != nil {
		return "", fmt.Errorf("persist %s otp: %w", purpose, mapStoreError(err))
	}
	otpIssued.Add(string(purpose), 1)
	return code, nil
}

// Validate checks code against the slot without mutating the account
func (e *OTPEngine) Validate(purpose entity.OTPPurpose, a *entity.Account, code string) entity.OTPOutcome {
	out := a.Slot(purpose).Check(code, e.Now())
	otpOutcomes.Add(string(purpose)+"_"+out.String(), 1)
	return out
}

func outcomeError(o entity.OTPOutcome) error {
	switch o {
	case entity.OTPValid:
		return nil
	case entity.OTPExpired:
		return ErrOTPExpired
	default:
		return ErrInvalidOTP
	}
}
