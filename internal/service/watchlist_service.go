package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
)

type WatchlistService struct {
	watchlistRepo repository.WatchlistRepository
}

func NewWatchlistService(watchlistRepo repository.WatchlistRepository) *WatchlistService {
	return &WatchlistService{watchlistRepo: watchlistRepo}
}

func (s *WatchlistService) Get(ctx context.Context, userID uuid.UUID) ([]domain.ItemRef, error) {
	wl, err := s.watchlistRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return wl.Items, nil
}

// Add appends item to the user's watchlist. Adding an item that is already
// present succeeds without changing the list.
func (s *WatchlistService) Add(ctx context.Context, userID uuid.UUID, item domain.ItemRef) ([]domain.ItemRef, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrValidation)
	}
	if !item.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, item.Provider)
	}

	wl, err := s.watchlistRepo.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
		return wl.Add(item), nil
	})
	if err != nil {
		return nil, err
	}
	return wl.Items, nil
}

// Remove drops the item if present. Removing an absent item is not an error.
func (s *WatchlistService) Remove(ctx context.Context, userID uuid.UUID, provider domain.Provider, id string) ([]domain.ItemRef, error) {
	id = strings.TrimSpace(id)
	wl, err := s.watchlistRepo.Update(ctx, userID, func(wl *domain.Watchlist) (bool, error) {
		return wl.Remove(provider, id), nil
	})
	if err != nil {
		return nil, err
	}
	return wl.Items, nil
}
