// Package memory holds in-process implementations of the domain repositories.
// They back APP_STORE=memory and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
)

type AccountRepository struct {
	mu         sync.RWMutex
	partitions map[entity.Role]map[string]*entity.Account
	index      map[string]entity.EmailIndexEntry
}

func NewAccountRepository() *AccountRepository {
	p := make(map[entity.Role]map[string]*entity.Account, len(entity.Roles))
	for _, r := range entity.Roles {
		p[r] = map[string]*entity.Account{}
	}
	return &AccountRepository{partitions: p, index: map[string]entity.EmailIndexEntry{}}
}

func (r *AccountRepository) Create(_ context.Context, a *entity.Account) error {
	part, ok := r.partitions[a.Role]
	if !ok {
		return entity.ErrProfileMismatch
	}
	stored, err := clone(a)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.index[a.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	now := time.Now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	a.CreatedAt, a.UpdatedAt = now, now
	r.index[a.Email] = entity.EmailIndexEntry{Email: a.Email, Role: a.Role, AccountID: a.ID}
	part[a.ID] = stored
	return nil
}

func (r *AccountRepository) FindByID(_ context.Context, role entity.Role, id string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.partitions[role][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a)
}

func (r *AccountRepository) FindByEmail(_ context.Context, role entity.Role, email string) (*entity.Account, error) {
	email = entity.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.partitions[role] {
		if a.Email == email {
			return clone(a)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepository) LookupEmail(_ context.Context, email string) (*entity.EmailIndexEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *AccountRepository) Update(_ context.Context, a *entity.Account) error {
	stored, err := clone(a)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	part := r.partitions[a.Role]
	if _, ok := part[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	stored.UpdatedAt = a.UpdatedAt
	part[a.ID] = stored
	return nil
}

// clone deep-copies an account so callers never alias stored state
func clone(a *entity.Account) (*entity.Account, error) {
	cp := *a
	b, err := a.Profile.MarshalFor(a.Role)
	if err != nil {
		return nil, err
	}
	if cp.Profile, err = entity.UnmarshalProfile(a.Role, b); err != nil {
		return nil, err
	}
	return &cp, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
