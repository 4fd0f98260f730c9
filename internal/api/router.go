package api

import (
	"net/http"

	"github.com/dom/kaf-catalog/internal/api/handlers"
	"github.com/dom/kaf-catalog/internal/api/middleware"
	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/metrics"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/dom/kaf-catalog/internal/storage/filesystem"
	"github.com/dom/kaf-catalog/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Posters stored on local disk are served from here.
	if cfg.Blob.Driver == "filesystem" {
		fs := http.StripPrefix(filesystem.PublicPrefix, http.FileServer(http.Dir(cfg.Blob.UploadDir)))
		r.Handle(filesystem.PublicPrefix+"*", fs)
	}

	authHandler := handlers.NewAuthHandler(services.Auth, logger)
	catalogHandler := handlers.NewCatalogHandler(services.Catalog, logger)
	watchlistHandler := handlers.NewWatchlistHandler(services.Watchlist, logger)
	adminHandler := handlers.NewAdminHandler(services.Catalog, logger)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, logger)

	requireAuth := middleware.Auth(services.Auth, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.Auth.RatePerMinute, cfg.Auth.Burst))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.With(requireAuth).Get("/me", authHandler.Me)
		})

		// Public catalog routes
		r.Get("/movies/combined", catalogHandler.Combined)
		r.Get("/movie/{provider}/{id}", catalogHandler.Detail)
		r.Get("/search", catalogHandler.Search)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/watchlist", func(r chi.Router) {
				r.Get("/", watchlistHandler.Get)
				r.Post("/", watchlistHandler.Add)
				r.Delete("/{provider}/{id}", watchlistHandler.Remove)
			})

			r.Post("/admin/upload", adminHandler.Upload)
		})

		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
