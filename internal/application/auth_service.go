package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	repo "github.com/oksasatya/healthcare-identity/internal/domain/repository"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", helpers.MaxPasswordBytes)
)

func checkPasswordLength(p string) error {
	switch {
	case len(p) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(p) > helpers.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// Options tunes the password reset flow and notification links
type Options struct {
	// ResetURL is the front-end page linked from reset emails
	ResetURL string
	// ResetRequireOTP makes ResetPassword re-check the reset code instead of
	// trusting an earlier VerifyResetOTP call.
	ResetRequireOTP bool
}

// AuthService orchestrates registration, login, verification and reset over
// the role partitions.
type AuthService struct {
	Repo     repo.AccountRepository
	Resolver *IdentityResolver
	OTP      *OTPEngine
	Sessions *helpers.SessionManager
	Notifier Notifier
	Indexer  AccountIndexer
	Objects  ObjectStore
	Logger   *logrus.Logger
	Opts     Options
	Now      func() time.Time
}

func NewAuthService(
	r repo.AccountRepository,
	resolver *IdentityResolver,
	otp *OTPEngine,
	sessions *helpers.SessionManager,
	notifier Notifier,
	indexer AccountIndexer,
	objects ObjectStore,
	logger *logrus.Logger,
	opts Options,
) *AuthService {
	return &AuthService{
		Repo:     r,
		Resolver: resolver,
		OTP:      otp,
		Sessions: sessions,
		Notifier: notifier,
		Indexer:  indexer,
		Objects:  objects,
		Logger:   logger,
		Opts:     opts,
		Now:      time.Now,
	}
}

// AccountSummary is the public view of an account
type AccountSummary struct {
	ID                string         `json:"id"`
	Email             string         `json:"email"`
	Role              entity.Role    `json:"role"`
	DisplayName       string         `json:"name"`
	IsAccountVerified bool           `json:"is_account_verified"`
	IsActive          bool           `json:"is_active"`
	LastLogin         *time.Time     `json:"last_login,omitempty"`
	AvatarURL         string         `json:"avatar_url,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	Profile           entity.Profile `json:"profile"`
}

// Session is a freshly minted session token
type Session struct {
	Token     string
	ExpiresAt time.Time
}

func Summarize(a *entity.Account) AccountSummary {
	s := AccountSummary{
		ID:                a.ID,
		Email:             a.Email,
		Role:              a.Role,
		DisplayName:       a.DisplayName(),
		IsAccountVerified: a.IsAccountVerified,
		IsActive:          a.IsActive,
		AvatarURL:         a.AvatarURL,
		CreatedAt:         a.CreatedAt,
		Profile:           a.Profile,
	}
	if !a.LastLogin.IsZero() {
		t := a.LastLogin
		s.LastLogin = &t
	}
	return s
}

type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Profile  entity.Profile
}

// Register creates an unverified account in the partition for in.Role and
// grants a session straight away; verification gates features, not login.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AccountSummary, *Session, error) {
	ctx = context.WithoutCancel(ctx)

	email := entity.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || in.Role == "" {
		return nil, nil, ErrMissingFields
	}
	role, ok := entity.ParseRole(in.Role)
	if !ok {
		return nil, nil, ErrInvalidRole
	}
	if err := checkPasswordLength(in.Password); err != nil {
		return nil, nil, err
	}
	if !in.Profile.Matches(role) || in.Profile.Name() == "" {
		return nil, nil, ErrMissingFields
	}

	exists, err := s.Resolver.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrDuplicateEmail
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	a := &entity.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		Profile:      in.Profile,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		// lost a race with a concurrent registration for the same email
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, fmt.Errorf("create %s account: %w", role, err)
	}
	registrations.Add(string(role), 1)

	sess, err := s.mint(a)
	if err != nil {
		return nil, nil, err
	}
	sum := Summarize(a)
	s.index(ctx, sum)
	s.log().WithFields(logrus.Fields{"account_id": a.ID, "role": role}).Info("account registered")
	return &sum, sess, nil
}

// Login checks, in order: existence, verification, suspension, password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AccountSummary, *Session, error) {
	ctx = context.WithoutCancel(ctx)

	if entity.NormalizeEmail(email) == "" || password == "" {
		return nil, nil, ErrMissingFields
	}
	a, err := s.Resolver.ResolveByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		logins.Add("invalid_credentials", 1)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !a.IsAccountVerified {
		logins.Add("not_verified", 1)
		return nil, nil, ErrNotVerified
	}
	if !a.IsActive {
		logins.Add("suspended", 1)
		return nil, nil, ErrSuspended
	}
	ok, err := helpers.VerifyPassword(password, a.PasswordHash)
	if err != nil {
		s.log().WithError(err).WithField("account_id", a.ID).Error("stored credential unreadable")
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		logins.Add("invalid_credentials", 1)
		return nil, nil, ErrInvalidCredentials
	}

	a.LastLogin = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("record last login: %w", mapStoreError(err))
	}
	sess, err := s.mint(a)
	if err != nil {
		return nil, nil, err
	}
	logins.Add("success", 1)
	sum := Summarize(a)
	return &sum, sess, nil
}

// SendVerificationOTP issues a verify code for the authenticated account and
// emails it. The code is never returned to the caller.
func (s *AuthService) SendVerificationOTP(ctx context.Context, accountID string, meta RequestMeta) error {
	ctx = context.WithoutCancel(ctx)

	a, err := s.Resolver.ResolveByID(ctx, accountID)
	if err != nil {
		return err
	}
	code, err := s.OTP.Issue(ctx, entity.OTPVerify, a)
	if err != nil {
		return err
	}
	return s.notify(ctx, Notification{
		Kind:      NotifyVerifyOTP,
		To:        a.Email,
		Name:      a.DisplayName(),
		Code:      code,
		ExpiresAt: a.VerifyOTP.ExpiresAt(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
}

// VerifyAccount consumes a verify code. Invalid or expired codes leave the
// account untouched.
func (s *AuthService) VerifyAccount(ctx context.Context, accountID, code string, meta RequestMeta) error {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(code) == "" {
		return ErrMissingFields
	}
	a, err := s.Resolver.ResolveByID(ctx, accountID)
	if err != nil {
		return err
	}
	if a.IsAccountVerified {
		return ErrAlreadyVerified
	}
	if err := outcomeError(s.OTP.Validate(entity.OTPVerify, a, code)); err != nil {
		return err
	}

	a.IsAccountVerified = true
	a.VerifyOTP.Clear()
	if err := s.Repo.Update(ctx, a); err != nil {
		return fmt.Errorf("mark verified: %w", mapStoreError(err))
	}
	s.index(ctx, Summarize(a))

	if err := s.notify(ctx, Notification{
		Kind:      NotifyWelcome,
		To:        a.Email,
		Name:      a.DisplayName(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		s.log().WithError(err).WithField("account_id", a.ID).Warn("welcome email not sent")
	}
	return nil
}

// SendResetOTP issues a reset code for the account owning email
func (s *AuthService) SendResetOTP(ctx context.Context, email string, meta RequestMeta) error {
	ctx = context.WithoutCancel(ctx)

	if entity.NormalizeEmail(email) == "" {
		return ErrMissingFields
	}
	a, err := s.Resolver.ResolveByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.OTP.Issue(ctx, entity.OTPReset, a)
	if err != nil {
		return err
	}
	return s.notify(ctx, Notification{
		Kind:      NotifyResetOTP,
		To:        a.Email,
		Name:      a.DisplayName(),
		Code:      code,
		Link:      s.resetLink(a.Email),
		ExpiresAt: a.ResetOTP.ExpiresAt(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
}

// VerifyResetOTP checks a reset code without consuming it
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) error {
	ctx = context.WithoutCancel(ctx)

	if entity.NormalizeEmail(email) == "" || strings.TrimSpace(code) == "" {
		return ErrMissingFields
	}
	a, err := s.Resolver.ResolveByEmail(ctx, email)
	if err != nil {
		return err
	}
	return outcomeError(s.OTP.Validate(entity.OTPReset, a, code))
}

type ResetPasswordInput struct {
	Email       string
	NewPassword string
	// OTP is optional unless Options.ResetRequireOTP is set
	OTP string
}

// ResetPassword overwrites the password and clears the reset slot. By default it
// trusts an earlier VerifyResetOTP; a supplied OTP is always re-checked.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx = context.WithoutCancel(ctx)

	if entity.NormalizeEmail(in.Email) == "" || in.NewPassword == "" {
		return ErrMissingFields
	}
	if err := checkPasswordLength(in.NewPassword); err != nil {
		return err
	}
	if s.Opts.ResetRequireOTP && strings.TrimSpace(in.OTP) == "" {
		return ErrMissingFields
	}
	a, err := s.Resolver.ResolveByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.OTP) != "" {
		if err := outcomeError(s.OTP.Validate(entity.OTPReset, a, in.OTP)); err != nil {
			return err
		}
	}

	hash, err := helpers.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = hash
	a.ResetOTP.Clear()
	if err := s.Repo.Update(ctx, a); err != nil {
		return fmt.Errorf("update password: %w", mapStoreError(err))
	}
	s.log().WithField("account_id", a.ID).Info("password reset")
	return nil
}

// GetSelf returns the public summary of the authenticated account
func (s *AuthService) GetSelf(ctx context.Context, accountID string) (*AccountSummary, error) {
	a, err := s.Resolver.ResolveByID(context.WithoutCancel(ctx), accountID)
	if err != nil {
		return nil, err
	}
	sum := Summarize(a)
	return &sum, nil
}

// UploadAvatar stores an image for the account and records its public URL
func (s *AuthService) UploadAvatar(ctx context.Context, accountID string, r io.Reader, filename, contentType string) (*AccountSummary, error) {
	ctx = context.WithoutCancel(ctx)

	if s.Objects == nil {
		return nil, ErrStorageUnavailable
	}
	a, err := s.Resolver.ResolveByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", string(a.Role), a.ID, uuid.NewString()+ext))
	link, err := s.Objects.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	a.AvatarURL = link
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("save avatar: %w", mapStoreError(err))
	}
	sum := Summarize(a)
	s.index(ctx, sum)
	return &sum, nil
}

// SearchAccounts queries the account directory
func (s *AuthService) SearchAccounts(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Indexer == nil {
		return []map[string]any{}, nil
	}
	return s.Indexer.Search(ctx, q, size)
}

func (s *AuthService) mint(a *entity.Account) (*Session, error) {
	tok, exp, err := s.Sessions.Mint(a.ID, a.DisplayName(), string(a.Role))
	if err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}
	return &Session{Token: tok, ExpiresAt: exp}, nil
}

func (s *AuthService) notify(ctx context.Context, n Notification) error {
	if s.Notifier == nil {
		return nil
	}
	if err := s.Notifier.Notify(ctx, n); err != nil {
		s.log().WithError(err).WithField("kind", n.Kind).Error("notification failed")
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

func (s *AuthService) index(ctx context.Context, sum AccountSummary) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, sum); err != nil {
		s.log().WithError(err).WithField("account_id", sum.ID).Warn("account index failed")
	}
}

func (s *AuthService) resetLink(email string) string {
	if s.Opts.ResetURL == "" {
		return ""
	}
	return s.Opts.ResetURL + "?email=" + url.QueryEscape(email)
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
