package service

import (
	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/repository"
	"go.uber.org/zap"
)

type Services struct {
	Auth      *AuthService
	Watchlist *WatchlistService
	Catalog   *CatalogService
}

type Dependencies struct {
	Sessions SessionAuthority
	Remote   RemoteCatalog
	Posters  PosterStore
	Events   CatalogEvents
}

func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config, logger *zap.Logger) *Services {
	admin := AdminCredentials{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}
	return &Services{
		Auth:      NewAuthService(repos.User, deps.Sessions, admin, logger),
		Watchlist: NewWatchlistService(repos.Watchlist),
		Catalog:   NewCatalogService(repos.LocalTitle, deps.Remote, deps.Posters, deps.Events, cfg.TMDB.Timeout, logger),
	}
}
