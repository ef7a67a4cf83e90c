package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/memory"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]entity.EmailIndexEntry
	gets    int
	failGet bool
}

func (c *mapCache) Get(_ context.Context, email string) (*entity.EmailIndexEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	e, ok := c.entries[email]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (c *mapCache) Put(_ context.Context, e entity.EmailIndexEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]entity.EmailIndexEntry{}
	}
	c.entries[e.Email] = e
	return nil
}

func seedAccount(t *testing.T, repo *memory.AccountRepository, role entity.Role, email string) *entity.Account {
	t.Helper()
	var p entity.Profile
	switch role {
	case entity.RolePatient:
		p.Patient = &entity.PatientProfile{FullName: "P"}
	case entity.RoleClinic:
		p.Clinic = &entity.ClinicProfile{ClinicName: "C"}
	case entity.RoleDoctor:
		p.Doctor = &entity.DoctorProfile{FullName: "D"}
	case entity.RolePharmacist:
		p.Pharmacist = &entity.PharmacistProfile{FullName: "R"}
	}
	a := &entity.Account{ID: uuid.NewString(), Email: email, PasswordHash: "x", Role: role, IsActive: true, Profile: p}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestResolveByEmailEachPartition(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()
	r := NewIdentityResolver(repo, nil, nil)

	for _, role := range entity.Roles {
		a := seedAccount(t, repo, role, string(role)+"@x.com")

		got, err := r.ResolveByEmail(ctx, " "+string(role)+"@X.com")
		require.NoError(t, err)
		require.Equal(t, role, got.Role)
		require.Equal(t, a.ID, got.ID)

		byID, err := r.ResolveByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, role, byID.Role)
	}

	_, err := r.ResolveByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.ResolveByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.ResolveByEmail(ctx, "  ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEmailExistsUsesIndex(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()
	cache := &mapCache{}
	r := NewIdentityResolver(repo, cache, nil)

	ok, err := r.EmailExists(ctx, "doc@x.com")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, cache.entries, "negative lookups are not cached")

	seedAccount(t, repo, entity.RoleDoctor, "doc@x.com")
	ok, err = r.EmailExists(ctx, "DOC@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entity.RoleDoctor, cache.entries["doc@x.com"].Role)
}

func TestResolveByEmailCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()
	cache := &mapCache{}
	r := NewIdentityResolver(repo, cache, nil)

	a := seedAccount(t, repo, entity.RolePharmacist, "ph@x.com")
	_, err := r.ResolveByEmail(ctx, "ph@x.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, cache.entries["ph@x.com"].AccountID)

	got, err := r.ResolveByEmail(ctx, "ph@x.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	// a stale entry pointing at the wrong partition falls back to the probe
	cache.entries["ph@x.com"] = entity.EmailIndexEntry{Email: "ph@x.com", Role: entity.RolePatient}
	got, err = r.ResolveByEmail(ctx, "ph@x.com")
	require.NoError(t, err)
	require.Equal(t, entity.RolePharmacist, got.Role)

	// cache failures degrade to the probe
	cache.failGet = true
	got, err = r.ResolveByEmail(ctx, "ph@x.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
}
