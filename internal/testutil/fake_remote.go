package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
)

// FakeRemoteCatalog is an in-memory remote catalog. SetError makes every
// call fail and SetDelay makes calls slow.
type FakeRemoteCatalog struct {
	mu     sync.Mutex
	titles []domain.RemoteTitle
	err    error
	delay  time.Duration
	calls  int
}

func NewFakeRemoteCatalog() *FakeRemoteCatalog {
	return &FakeRemoteCatalog{
		titles: []domain.RemoteTitle{
			{ID: "550", Title: "Fight Club", Overview: "An insomniac office worker...", PosterPath: "/fc.jpg", ReleaseDate: "1999-10-15", VoteAverage: 8.4},
			{ID: "603", Title: "The Matrix", Overview: "A computer hacker learns...", PosterPath: "/matrix.jpg", ReleaseDate: "1999-03-30", VoteAverage: 8.2},
			{ID: "13", Title: "Forrest Gump", Overview: "A man with a low IQ...", PosterPath: "/fg.jpg", ReleaseDate: "1994-07-06", VoteAverage: 8.5},
		},
	}
}

// SetError makes subsequent calls fail with err; nil restores normal behavior
func (f *FakeRemoteCatalog) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetDelay makes subsequent calls wait d or until the context is done
func (f *FakeRemoteCatalog) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns the number of calls made so far
func (f *FakeRemoteCatalog) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeRemoteCatalog) begin(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	delay, err := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrUpstream, ctx.Err())
		}
	}
	return err
}

func (f *FakeRemoteCatalog) Popular(ctx context.Context, page int) ([]domain.RemoteTitle, error) {
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if page > 1 {
		return []domain.RemoteTitle{}, nil
	}
	return append([]domain.RemoteTitle(nil), f.titles...), nil
}

func (f *FakeRemoteCatalog) Search(ctx context.Context, query string) ([]domain.RemoteTitle, error) {
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	found := []domain.RemoteTitle{}
	for _, t := range f.titles {
		if strings.Contains(strings.ToLower(t.Title), strings.ToLower(query)) {
			found = append(found, t)
		}
	}
	return found, nil
}

func (f *FakeRemoteCatalog) Movie(ctx context.Context, id string) (*domain.RemoteTitle, error) {
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.titles {
		if f.titles[i].ID == id {
			t := f.titles[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: remote movie %s", domain.ErrNotFound, id)
}
