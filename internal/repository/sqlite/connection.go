package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository/gormstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dsnOptions make every transaction take the write lock up front, so
// concurrent Updates queue on the busy timeout instead of failing with
// SQLITE_BUSY halfway through.
const dsnOptions = "?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on"

// NewConnection opens (creating if needed) the database file at path and
// migrates the collections table.
func NewConnection(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database dir: %v", domain.ErrStoreUnavailable, err)
		}
	}

	db, err := gorm.Open(sqlite.Open("file:"+path+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := gormstore.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
