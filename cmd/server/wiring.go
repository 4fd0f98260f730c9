package main

import (
	"context"
	"fmt"

	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/dom/kaf-catalog/internal/repository/file"
	"github.com/dom/kaf-catalog/internal/repository/gormstore"
	"github.com/dom/kaf-catalog/internal/repository/postgres"
	redisstore "github.com/dom/kaf-catalog/internal/repository/redis"
	"github.com/dom/kaf-catalog/internal/repository/sqlite"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/dom/kaf-catalog/internal/storage/filesystem"
	"github.com/dom/kaf-catalog/internal/storage/minio"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.CollectionStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewConnection(cfg.Store.DatabaseURL, gormLogLevel(cfg.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("using postgres collection store")
		return gormstore.NewCollectionStore(db), nil
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("using redis collection store", zap.String("addr", cfg.Store.RedisAddr))
		return redisstore.NewCollectionStore(client, cfg.Store.RedisPrefix), nil
	case "file":
		store, err := file.NewStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		log.Info("using file collection store", zap.String("dir", cfg.Store.DataDir))
		return store, nil
	default:
		db, err := sqlite.NewConnection(cfg.Store.SQLitePath, gormLogLevel(cfg.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Info("using sqlite collection store", zap.String("path", cfg.Store.SQLitePath))
		return gormstore.NewCollectionStore(db), nil
	}
}

func openPosterStore(ctx context.Context, cfg *config.Config) (service.PosterStore, error) {
	if cfg.Blob.Driver == "minio" {
		m := cfg.Blob.Minio
		return minio.New(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL, m.PublicURL)
	}
	return filesystem.NewStore(cfg.Blob.UploadDir)
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
