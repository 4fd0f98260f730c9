package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/google/uuid"
)

// ErrNoChange may be returned by an UpdateFunc to finish an Update without
// writing anything back.
var ErrNoChange = errors.New("no change")

// UpdateFunc receives the current records of a collection and returns the
// records that should replace them.
type UpdateFunc func(current []json.RawMessage) ([]json.RawMessage, error)

// CollectionStore persists named collections of JSON records.
//
// Load never observes a partially written collection. Update runs its
// read-modify-write while holding the collection exclusively, so two
// concurrent updaters of the same collection cannot lose each other's
// change. Distinct collections never block each other.
type CollectionStore interface {
	Load(ctx context.Context, name string) ([]json.RawMessage, error)
	Replace(ctx context.Context, name string, records []json.RawMessage) error
	Update(ctx context.Context, name string, fn UpdateFunc) ([]json.RawMessage, error)
	Close() error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	CreateIfEmpty(ctx context.Context, user *domain.User) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}

type LocalTitleRepository interface {
	Create(ctx context.Context, title *domain.LocalTitle) error
	GetByID(ctx context.Context, id string) (*domain.LocalTitle, error)
	ListNewestFirst(ctx context.Context) ([]*domain.LocalTitle, error)
}

type WatchlistRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Watchlist, error)
	// Update applies fn to the user's watchlist atomically. fn reports
	// whether it changed the list; unchanged lists are not written.
	Update(ctx context.Context, userID uuid.UUID, fn func(*domain.Watchlist) (bool, error)) (*domain.Watchlist, error)
}

type Repositories struct {
	User       UserRepository
	LocalTitle LocalTitleRepository
	Watchlist  WatchlistRepository
}

// Collection names.
const (
	UsersCollection       = "users"
	LocalTitlesCollection = "movies"
	watchlistPrefix       = "watchlist:"
)

func WatchlistCollection(userID uuid.UUID) string {
	return watchlistPrefix + userID.String()
}

func NewRepositories(store CollectionStore) *Repositories {
	return &Repositories{
		User:       NewUserRepository(store),
		LocalTitle: NewLocalTitleRepository(store),
		Watchlist:  NewWatchlistRepository(store),
	}
}
