package repository

import (
	"context"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/google/uuid"
)

// Each user's watchlist lives in its own collection holding a single
// record, so updates for different users never contend.
type watchlistRepository struct {
	store CollectionStore
}

func NewWatchlistRepository(store CollectionStore) *watchlistRepository {
	return &watchlistRepository{store: store}
}

func (r *watchlistRepository) collection(userID uuid.UUID) *Collection[domain.Watchlist] {
	return NewCollection[domain.Watchlist](r.store, WatchlistCollection(userID))
}

func (r *watchlistRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Watchlist, error) {
	records, err := r.collection(userID).All(ctx)
	if err != nil {
		return nil, err
	}
	return firstOrEmpty(userID, records), nil
}

func (r *watchlistRepository) Update(ctx context.Context, userID uuid.UUID, fn func(*domain.Watchlist) (bool, error)) (*domain.Watchlist, error) {
	records, err := r.collection(userID).Update(ctx, func(current []domain.Watchlist) ([]domain.Watchlist, error) {
		wl := firstOrEmpty(userID, current)
		changed, err := fn(wl)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, ErrNoChange
		}
		return []domain.Watchlist{*wl}, nil
	})
	if err != nil {
		return nil, err
	}
	return firstOrEmpty(userID, records), nil
}

func firstOrEmpty(userID uuid.UUID, records []domain.Watchlist) *domain.Watchlist {
	if len(records) == 0 {
		return &domain.Watchlist{UserID: userID, Items: []domain.ItemRef{}}
	}
	wl := records[0]
	if wl.Items == nil {
		wl.Items = []domain.ItemRef{}
	}
	return &wl
}
