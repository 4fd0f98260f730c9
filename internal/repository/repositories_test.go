package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string, role domain.Role) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepository_Create(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{name: "successful creation", user: newUser("a@test.local", domain.RoleUser)},
		{name: "duplicate email", user: newUser("a@test.local", domain.RoleUser), wantErr: domain.ErrDuplicateEmail},
		{name: "email match is case sensitive", user: newUser("A@test.local", domain.RoleUser)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repos.User.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	count, err := repos.User.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUserRepository_ConcurrentDuplicateEmail(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repos.User.Create(ctx, newUser("same@test.local", domain.RoleUser)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	count, err := repos.User.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserRepository_Get(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()

	user := newUser("get@test.local", domain.RoleAdmin)
	require.NoError(t, repos.User.Create(ctx, user))

	byID, err := repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, domain.RoleAdmin, byID.Role)

	byEmail, err := repos.User.GetByEmail(ctx, "get@test.local")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repos.User.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repos.User.GetByEmail(ctx, "missing@test.local")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_CreateIfEmpty(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()

	created, err := repos.User.CreateIfEmpty(ctx, newUser("admin@test.local", domain.RoleAdmin))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repos.User.CreateIfEmpty(ctx, newUser("admin2@test.local", domain.RoleAdmin))
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repos.User.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLocalTitleRepository_ListNewestFirst(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	titles := []*domain.LocalTitle{
		{ID: "a", Title: "Oldest", CreatedAt: base},
		{ID: "c", Title: "Newest", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", Title: "Middle", CreatedAt: base.Add(time.Hour)},
		{ID: "d", Title: "Middle twin", CreatedAt: base.Add(time.Hour)},
	}
	for _, title := range titles {
		require.NoError(t, repos.LocalTitle.Create(ctx, title))
	}

	list, err := repos.LocalTitle.ListNewestFirst(ctx)
	require.NoError(t, err)

	ids := make([]string, len(list))
	for i, l := range list {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids, "ties are broken by id")

	got, err := repos.LocalTitle.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Middle", got.Title)

	_, err = repos.LocalTitle.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWatchlistRepository_UsersAreIndependent(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	wl, err := repos.Watchlist.Get(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, wl.Items)
	assert.Empty(t, wl.Items)

	_, err = repos.Watchlist.Update(ctx, alice, func(wl *domain.Watchlist) (bool, error) {
		return wl.Add(domain.ItemRef{Provider: domain.ProviderRemote, ID: "1"}), nil
	})
	require.NoError(t, err)

	wl, err = repos.Watchlist.Get(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, wl.Items)

	wl, err = repos.Watchlist.Get(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, wl.Items, 1)
	assert.Equal(t, alice, wl.UserID)
}

func TestWatchlistRepository_ConcurrentUpdates(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()
	userID := uuid.New()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repos.Watchlist.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
				return wl.Add(domain.ItemRef{Provider: domain.ProviderRemote, ID: fmt.Sprint(i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	wl, err := repos.Watchlist.Get(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, wl.Items, workers, "no update may be lost")
}

func TestWatchlistRepository_InterleavedAddAndRemove(t *testing.T) {
	repos := repository.NewRepositories(newFileStore(t))
	ctx := context.Background()
	userID := uuid.New()

	const n = 50
	_, err := repos.Watchlist.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
		for i := 0; i < n; i++ {
			wl.Add(domain.ItemRef{Provider: domain.ProviderRemote, ID: fmt.Sprint(i)})
		}
		return true, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := repos.Watchlist.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
				return wl.Remove(domain.ProviderRemote, fmt.Sprint(i)), nil
			})
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := repos.Watchlist.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
				return wl.Add(domain.ItemRef{Provider: domain.ProviderLocal, ID: fmt.Sprint(i)}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	wl, err := repos.Watchlist.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, wl.Items, n)
	for _, item := range wl.Items {
		assert.Equal(t, domain.ProviderLocal, item.Provider)
	}
}
