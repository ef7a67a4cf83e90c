package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no partition holds the requested account
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when the canonical email index already holds the address
	ErrDuplicateEmail = errors.New("email already registered")
)

// AccountRepository is the credential store: four role partitions plus a canonical
// email index maintained in the same write as the partition insert.
type AccountRepository interface {
	// Create inserts a into the partition for a.Role and claims a.Email in the index.
	Create(ctx context.Context, a *entity.Account) error
	FindByID(ctx context.Context, role entity.Role, id string) (*entity.Account, error)
	FindByEmail(ctx context.Context, role entity.Role, email string) (*entity.Account, error)
	// LookupEmail reads the canonical index without probing partitions.
	LookupEmail(ctx context.Context, email string) (*entity.EmailIndexEntry, error)
	// Update replaces the whole account document.
	Update(ctx context.Context, a *entity.Account) error
}
