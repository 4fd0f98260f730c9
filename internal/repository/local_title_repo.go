package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/dom/kaf-catalog/internal/domain"
)

type localTitleRepository struct {
	titles *Collection[domain.LocalTitle]
}

func NewLocalTitleRepository(store CollectionStore) *localTitleRepository {
	return &localTitleRepository{titles: NewCollection[domain.LocalTitle](store, LocalTitlesCollection)}
}

func (r *localTitleRepository) Create(ctx context.Context, title *domain.LocalTitle) error {
	_, err := r.titles.Update(ctx, func(titles []domain.LocalTitle) ([]domain.LocalTitle, error) {
		return append(titles, *title), nil
	})
	return err
}

func (r *localTitleRepository) GetByID(ctx context.Context, id string) (*domain.LocalTitle, error) {
	titles, err := r.titles.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range titles {
		if titles[i].ID == id {
			return &titles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: local title %s", domain.ErrNotFound, id)
}

// ListNewestFirst orders by creation time, then by id, so the order is
// stable for titles created within the same instant.
func (r *localTitleRepository) ListNewestFirst(ctx context.Context) ([]*domain.LocalTitle, error) {
	titles, err := r.titles.All(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.LocalTitle, len(titles))
	for i := range titles {
		result[i] = &titles[i]
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}
