package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

// partitionTables maps each role to its partition table
var partitionTables = map[entity.Role]string{
	entity.RolePatient:    "patients",
	entity.RoleClinic:     "clinics",
	entity.RoleDoctor:     "doctors",
	entity.RolePharmacist: "pharmacists",
}

const accountColumns = `id, email, password_hash, is_account_verified, is_active,
	verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
	last_login, avatar_url, profile, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func tableFor(role entity.Role) (string, error) {
	t, ok := partitionTables[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return t, nil
}

// Create writes the index row and the partition row in one transaction so two
// concurrent registrations for the same email cannot both commit.
func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	table, err := tableFor(a.Role)
	if err != nil {
		return err
	}
	profile, err := a.Profile.MarshalFor(a.Role)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO account_emails (email, role, account_id)
		VALUES ($1, $2, $3)
	`, a.Email, string(a.Role), a.ID); err != nil {
		if isDuplicateKeyError(err, "email") {
			return repository.ErrDuplicateEmail
		}
		return err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO `+table+` (id, email, password_hash, is_account_verified, is_active,
			verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at,
			last_login, avatar_url, profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.PasswordHash, a.IsAccountVerified, a.IsActive,
		a.VerifyOTP.Code(), nullTime(a.VerifyOTP.ExpiresAt()),
		a.ResetOTP.Code(), nullTime(a.ResetOTP.ExpiresAt()),
		nullTime(a.LastLogin), a.AvatarURL, profile)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if isDuplicateKeyError(err, "email") {
			return repository.ErrDuplicateEmail
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *AccountRepository) FindByID(ctx context.Context, role entity.Role, id string) (*entity.Account, error) {
	return r.findOne(ctx, role, "id", id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, role entity.Role, email string) (*entity.Account, error) {
	return r.findOne(ctx, role, "email", entity.NormalizeEmail(email))
}

func (r *AccountRepository) findOne(ctx context.Context, role entity.Role, column, value string) (*entity.Account, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	// ids Postgres cannot cast to uuid would fail the query instead of missing
	if column == "id" && uuid.Validate(value) != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM `+table+` WHERE `+column+` = $1`, value)
	a, err := scanAccount(row, role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) LookupEmail(ctx context.Context, email string) (*entity.EmailIndexEntry, error) {
	e := &entity.EmailIndexEntry{}
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT email, role, account_id FROM account_emails WHERE email = $1
	`, entity.NormalizeEmail(email)).Scan(&e.Email, &role, &e.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	e.Role = entity.Role(role)
	return e, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *entity.Account) error {
	table, err := tableFor(a.Role)
	if err != nil {
		return err
	}
	profile, err := a.Profile.MarshalFor(a.Role)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE `+table+`
		SET password_hash = $1, is_account_verified = $2, is_active = $3,
			verify_otp = $4, verify_otp_expires_at = $5,
			reset_otp = $6, reset_otp_expires_at = $7,
			last_login = $8, avatar_url = $9, profile = $10, updated_at = $11
		WHERE id = $12
	`, a.PasswordHash, a.IsAccountVerified, a.IsActive,
		a.VerifyOTP.Code(), nullTime(a.VerifyOTP.ExpiresAt()),
		a.ResetOTP.Code(), nullTime(a.ResetOTP.ExpiresAt()),
		nullTime(a.LastLogin), a.AvatarURL, profile, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanAccount(row pgx.Row, role entity.Role) (*entity.Account, error) {
	a := &entity.Account{Role: role}
	var (
		verifyCode, resetCode     string
		verifyExp, resetExp, last *time.Time
		profile                   []byte
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.IsAccountVerified, &a.IsActive,
		&verifyCode, &verifyExp, &resetCode, &resetExp,
		&last, &a.AvatarURL, &profile, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.VerifyOTP = entity.RestoreOTPSlot(verifyCode, derefTime(verifyExp))
	a.ResetOTP = entity.RestoreOTPSlot(resetCode, derefTime(resetExp))
	a.LastLogin = derefTime(last)
	p, err := entity.UnmarshalProfile(role, profile)
	if err != nil {
		return nil, fmt.Errorf("decode %s profile: %w", role, err)
	}
	a.Profile = p
	return a, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
