package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/kaf-catalog/internal/api"
	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/logger"
	"github.com/dom/kaf-catalog/internal/remote/tmdb"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/dom/kaf-catalog/internal/token"
	"github.com/dom/kaf-catalog/internal/websocket"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	app := &cli.Command{
		Name:   "catalogd",
		Usage:  "Movie catalog browser backend",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "bootstrap",
				Usage:  "Create the admin account if the user directory is empty",
				Action: bootstrap,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "catalogd: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	// Initialize collection store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	repos := repository.NewRepositories(store)

	posters, err := openPosterStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	if cfg.TMDB.APIKey == "" {
		log.Warn("TMDB_API_KEY is not set, remote catalog calls will fail")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, sign-in and registration will fail")
	}

	services := service.NewServices(repos, service.Dependencies{
		Sessions: token.NewAuthority(cfg.JWTSecret, cfg.JWTTTL),
		Remote:   tmdb.NewClient(cfg.TMDB.BaseURL, cfg.TMDB.APIKey, cfg.TMDB.Timeout),
		Posters:  posters,
		Events:   hub,
	}, cfg, log)

	created, err := services.Auth.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if created {
		log.Info("created bootstrap admin account", zap.String("email", cfg.Admin.Email))
	}

	router := api.NewRouter(services, hub, cfg, log)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("blob", cfg.Blob.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func bootstrap(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	repos := repository.NewRepositories(store)
	admin := service.AdminCredentials{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}
	// No sessions are issued here, so no signing secret is needed.
	auth := service.NewAuthService(repos.User, nil, admin, log)

	created, err := auth.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if created {
		log.Info("created bootstrap admin account", zap.String("email", cfg.Admin.Email))
	} else {
		log.Info("user directory is not empty, nothing to do")
	}
	return nil
}
