package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/metrics"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRemoteTimeout = 8 * time.Second

// RemoteCatalog is the third-party movie catalog.
type RemoteCatalog interface {
	Popular(ctx context.Context, page int) ([]domain.RemoteTitle, error)
	Search(ctx context.Context, query string) ([]domain.RemoteTitle, error)
	Movie(ctx context.Context, id string) (*domain.RemoteTitle, error)
}

// PosterStore keeps uploaded poster images and returns a reference to them.
type PosterStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
}

// CatalogEvents is notified when the local catalog changes.
type CatalogEvents interface {
	TitleAdded(card domain.CatalogCard)
}

type CatalogService struct {
	titleRepo     repository.LocalTitleRepository
	remote        RemoteCatalog
	posters       PosterStore
	events        CatalogEvents
	remoteTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewCatalogService(titleRepo repository.LocalTitleRepository, remote RemoteCatalog, posters PosterStore, events CatalogEvents, remoteTimeout time.Duration, logger *zap.Logger) *CatalogService {
	if remoteTimeout <= 0 {
		remoteTimeout = defaultRemoteTimeout
	}
	return &CatalogService{
		titleRepo:     titleRepo,
		remote:        remote,
		posters:       posters,
		events:        events,
		remoteTimeout: remoteTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Combined returns the local titles, newest first, next to one page of the
// remote popular listing. A failing remote catalog yields an empty remote
// list instead of an error.
func (s *CatalogService) Combined(ctx context.Context, page int) (*domain.CombinedCatalog, error) {
	titles, err := s.titleRepo.ListNewestFirst(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.CombinedCatalog{
		Local:  make([]domain.CatalogCard, 0, len(titles)),
		Remote: []domain.CatalogCard{},
	}
	for _, t := range titles {
		result.Local = append(result.Local, t.Card())
	}

	remoteCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	popular, err := s.remote.Popular(remoteCtx, page)
	if err != nil {
		metrics.RemoteCatalogFailures.WithLabelValues("popular").Inc()
		s.logger.Warn("[catalog.Combined] remote catalog unavailable, serving local titles only",
			zap.Int("page", page), zap.Error(err))
		return result, nil
	}
	for i := range popular {
		result.Remote = append(result.Remote, popular[i].Card())
	}
	return result, nil
}

// Detail returns a local title as stored, or the remote record for a
// remote id.
func (s *CatalogService) Detail(ctx context.Context, provider domain.Provider, id string) (any, error) {
	switch provider {
	case domain.ProviderLocal:
		return s.titleRepo.GetByID(ctx, id)
	case domain.ProviderRemote:
		remoteCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		defer cancel()

		title, err := s.remote.Movie(remoteCtx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				metrics.RemoteCatalogFailures.WithLabelValues("detail").Inc()
				if !errors.Is(err, domain.ErrUpstream) {
					err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
				}
			}
			return nil, err
		}
		return title, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}
}

// Search queries the remote catalog. A blank query returns no results; the
// caller is expected to show the combined list instead.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.CatalogCard, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.CatalogCard{}, nil
	}

	remoteCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	found, err := s.remote.Search(remoteCtx, query)
	if err != nil {
		metrics.RemoteCatalogFailures.WithLabelValues("search").Inc()
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		return nil, err
	}

	cards := make([]domain.CatalogCard, 0, len(found))
	for i := range found {
		cards = append(cards, found[i].Card())
	}
	return cards, nil
}

type PosterUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadInput struct {
	Title    string
	Year     string
	Genres   string
	Overview string
	Poster   *PosterUpload
}

// UploadLocal adds a title to the local catalog. Only admins may upload, and
// the role check happens before anything is stored.
func (s *CatalogService) UploadLocal(ctx context.Context, actor domain.Identity, input UploadInput) (*domain.LocalTitle, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	year, err := parseYear(input.Year)
	if err != nil {
		return nil, err
	}

	var posterExt, posterType string
	if input.Poster != nil && input.Poster.Body != nil {
		posterExt = strings.ToLower(filepath.Ext(input.Poster.Filename))
		var ok bool
		if posterType, ok = posterTypes[posterExt]; !ok {
			return nil, fmt.Errorf("%w: poster must be a png, jpeg, gif or webp image", domain.ErrValidation)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	entry := &domain.LocalTitle{
		ID:        id.String(),
		Title:     title,
		Year:      year,
		Genres:    SplitGenres(input.Genres),
		Overview:  strings.TrimSpace(input.Overview),
		CreatedAt: s.now().UTC(),
	}

	if posterType != "" {
		ref, err := s.posters.Put(ctx, entry.ID+posterExt, posterType, input.Poster.Body, input.Poster.Size)
		if err != nil {
			return nil, fmt.Errorf("store poster: %w", err)
		}
		entry.PosterRef = ref
	}

	if err := s.titleRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("[catalog.UploadLocal] local title added",
		zap.String("id", entry.ID), zap.String("by", actor.UserID.String()))
	if s.events != nil {
		s.events.TitleAdded(entry.Card())
	}
	return entry, nil
}

// posterTypes are the poster extensions accepted for upload. Posters are
// served back under their stored name, so anything a browser would render
// as a document is refused.
var posterTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// SplitGenres splits a comma separated list, trimming blanks and dropping
// empty entries. Duplicates are kept.
func SplitGenres(raw string) []string {
	genres := []string{}
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

func parseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		return 0, fmt.Errorf("%w: year must be a non-negative number", domain.ErrValidation)
	}
	return year, nil
}
