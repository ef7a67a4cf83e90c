package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	repo "github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

// EmailIndexCache remembers which partition owns an email. Only positive
// entries are cached; emails never change once registered.
type EmailIndexCache interface {
	Get(ctx context.Context, email string) (*entity.EmailIndexEntry, bool, error)
	Put(ctx context.Context, e entity.EmailIndexEntry) error
}

// IdentityResolver locates the single account matching an email or id across
// the role partitions.
type IdentityResolver struct {
	Repo   repo.AccountRepository
	Cache  EmailIndexCache
	Logger *logrus.Logger
}

func NewIdentityResolver(r repo.AccountRepository, cache EmailIndexCache, logger *logrus.Logger) *IdentityResolver {
	return &IdentityResolver{Repo: r, Cache: cache, Logger: logger}
}

// ResolveByEmail probes patient, clinic, doctor and pharmacist in that order and
// returns the first match. A cached index entry short-circuits the probe.
func (r *IdentityResolver) ResolveByEmail(ctx context.Context, email string) (*entity.Account, error) {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	if e, ok := r.cached(ctx, email); ok {
		a, err := r.Repo.FindByEmail(ctx, e.Role, email)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("find %s by email: %w", e.Role, err)
		}
	}
	for _, role := range entity.Roles {
		a, err := r.Repo.FindByEmail(ctx, role, email)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find %s by email: %w", role, err)
		}
		r.remember(ctx, entity.EmailIndexEntry{Email: a.Email, Role: a.Role, AccountID: a.ID})
		return a, nil
	}
	return nil, ErrNotFound
}

// ResolveByID runs the same ordered probe by id
func (r *IdentityResolver) ResolveByID(ctx context.Context, id string) (*entity.Account, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	for _, role := range entity.Roles {
		a, err := r.Repo.FindByID(ctx, role, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find %s by id: %w", role, err)
		}
		return a, nil
	}
	return nil, ErrNotFound
}

// EmailExists consults the canonical index, never the partition probe
func (r *IdentityResolver) EmailExists(ctx context.Context, email string) (bool, error) {
	email = entity.NormalizeEmail(email)
	if _, ok := r.cached(ctx, email); ok {
		return true, nil
	}
	e, err := r.Repo.LookupEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup email index: %w", err)
	}
	r.remember(ctx, *e)
	return true, nil
}

func (r *IdentityResolver) cached(ctx context.Context, email string) (*entity.EmailIndexEntry, bool) {
	if r.Cache == nil {
		return nil, false
	}
	e, ok, err := r.Cache.Get(ctx, email)
	if err != nil {
		if r.Logger != nil {
			r.Logger.WithError(err).Warn("email index cache read failed")
		}
		return nil, false
	}
	return e, ok
}

func (r *IdentityResolver) remember(ctx context.Context, e entity.EmailIndexEntry) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Put(ctx, e); err != nil && r.Logger != nil {
		r.Logger.WithError(err).WithField("role", e.Role).Warn("email index cache write failed")
	}
}
