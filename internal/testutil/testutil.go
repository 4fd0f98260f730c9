package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/kaf-catalog/internal/api"
	"github.com/dom/kaf-catalog/internal/config"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/dom/kaf-catalog/internal/repository/gormstore"
	repoPostgres "github.com/dom/kaf-catalog/internal/repository/postgres"
	repoSQLite "github.com/dom/kaf-catalog/internal/repository/sqlite"
	"github.com/dom/kaf-catalog/internal/service"
	"github.com/dom/kaf-catalog/internal/storage/filesystem"
	"github.com/dom/kaf-catalog/internal/token"
	"github.com/dom/kaf-catalog/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection.
// The test is skipped under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	skipContainers(t)

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_kaf_catalog"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := repoPostgres.NewConnection(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	testDB.DB = db
	testDB.DSN = dsn
	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears the collections table for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Exec("TRUNCATE TABLE collections").Error; err != nil {
		t.Logf("warning: failed to truncate collections: %v", err)
	}
}

// TestRedis manages a redis testcontainer
type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
}

// NewTestRedis starts a redis container. The test is skipped under -short.
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	skipContainers(t)

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	tr := &TestRedis{Container: container}
	t.Cleanup(func() {
		if tr.Client != nil {
			tr.Client.Close()
		}
		container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	tr.Client = client
	tr.Addr = addr
	return tr
}

// NewSQLiteStore opens a collection store on a fresh sqlite file in a temp
// dir. Unlike the container helpers it always runs.
func NewSQLiteStore(t *testing.T) *gormstore.CollectionStore {
	t.Helper()
	store, _ := NewSQLiteStoreAt(t, filepath.Join(t.TempDir(), "catalog.db"))
	return store
}

// NewSQLiteStoreAt opens a collection store on the given file. Opening the
// same path twice gives two independent connection pools.
func NewSQLiteStoreAt(t *testing.T, path string) (*gormstore.CollectionStore, *gorm.DB) {
	t.Helper()

	db, err := repoSQLite.NewConnection(path, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	store := gormstore.NewCollectionStore(db)
	t.Cleanup(func() {
		store.Close()
	})
	return store, db
}

func skipContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// TestConfig returns a configuration suitable for testing
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Port:        "0", // Random port
		Environment: "test",
		LogLevel:    "error",
		JWTSecret:   "test-jwt-secret-key-for-testing-only",
		JWTTTL:      time.Hour,
	}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "catalog.db")
	cfg.TMDB.Timeout = 2 * time.Second
	cfg.Blob.Driver = "filesystem"
	cfg.Blob.UploadDir = t.TempDir()
	cfg.Admin.Email = "admin@kaf.local"
	cfg.Admin.Password = "admin123"
	cfg.Admin.Name = "Administrator"
	cfg.Auth.RatePerMinute = 6000
	cfg.Auth.Burst = 1000
	return cfg
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Store    repository.CollectionStore
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Remote   *FakeRemoteCatalog
	Tokens   *token.Authority
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by a sqlite store in a
// temporary directory and a fake remote catalog. The admin account is
// bootstrapped.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithConfig(t, nil)
}

// NewTestServerWithConfig is NewTestServer with a hook to adjust the test
// configuration before anything is built from it.
func NewTestServerWithConfig(t *testing.T, adjust func(*config.Config)) *TestServer {
	t.Helper()

	cfg := TestConfig(t)
	if adjust != nil {
		adjust(cfg)
	}
	log := zap.NewNop()

	store, _ := NewSQLiteStoreAt(t, cfg.Store.SQLitePath)
	posters, err := filesystem.NewStore(cfg.Blob.UploadDir)
	if err != nil {
		t.Fatalf("failed to create poster store: %v", err)
	}

	repos := repository.NewRepositories(store)
	hub := websocket.NewHub(log)
	go hub.Run()

	remote := NewFakeRemoteCatalog()
	tokens := token.NewAuthority(cfg.JWTSecret, cfg.JWTTTL)

	services := service.NewServices(repos, service.Dependencies{
		Sessions: tokens,
		Remote:   remote,
		Posters:  posters,
		Events:   hub,
	}, cfg, log)
	services.Auth.WithBcryptCost(bcrypt.MinCost)

	if _, err := services.Auth.Bootstrap(context.Background()); err != nil {
		t.Fatalf("failed to bootstrap admin: %v", err)
	}

	router := api.NewRouter(services, hub, cfg, log)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Store:    store,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Remote:   remote,
		Tokens:   tokens,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL, with the token when one is given
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	if token == "" {
		return wsURL + "/api/ws"
	}
	return fmt.Sprintf("%s/api/ws?token=%s", wsURL, token)
}
