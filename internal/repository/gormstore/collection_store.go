package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRow stores a whole collection as one JSON array. Replacing the
// row is a single statement. Update holds the row lock (postgres) or the
// database write lock (sqlite) for the length of its transaction, which
// serializes writers across processes too.
type collectionRow struct {
	Name      string         `gorm:"primaryKey"`
	Records   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (collectionRow) TableName() string {
	return "collections"
}

var _ repository.CollectionStore = (*CollectionStore)(nil)

type CollectionStore struct {
	db *gorm.DB
	// sqlite has no row locks; its transactions begin IMMEDIATE instead.
	lockRows bool
}

func NewCollectionStore(db *gorm.DB) *CollectionStore {
	return &CollectionStore{db: db, lockRows: db.Dialector.Name() != "sqlite"}
}

// Migrate creates the collections table if needed.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&collectionRow{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *CollectionStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	var row collectionRow
	err := s.db.WithContext(ctx).Take(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, unavailable("load", name, err)
	}
	return repository.DecodeRecords(name, row.Records)
}

func (s *CollectionStore) Replace(ctx context.Context, name string, records []json.RawMessage) error {
	data, err := repository.EncodeRecords(records)
	if err != nil {
		return err
	}

	row := collectionRow{Name: name, Records: datatypes.JSON(data), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"records", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return unavailable("replace", name, err)
	}
	return nil
}

func (s *CollectionStore) Update(ctx context.Context, name string, fn repository.UpdateFunc) ([]json.RawMessage, error) {
	var result []json.RawMessage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Make sure there is a row to lock, otherwise two first writers
		// would both see "no row" and race on the insert.
		seed := collectionRow{Name: name, Records: datatypes.JSON("[]"), UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return unavailable("seed", name, err)
		}

		query := tx
		if s.lockRows {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row collectionRow
		if err := query.Take(&row, "name = ?", name).Error; err != nil {
			return unavailable("lock", name, err)
		}

		current, err := repository.DecodeRecords(name, row.Records)
		if err != nil {
			return err
		}
		next, changed, err := repository.ApplyUpdate(current, fn)
		if err != nil {
			return err
		}
		result = next
		if !changed {
			return nil
		}

		data, err := repository.EncodeRecords(next)
		if err != nil {
			return err
		}
		err = tx.Model(&collectionRow{}).Where("name = ?", name).Updates(map[string]any{
			"records":    datatypes.JSON(data),
			"updated_at": time.Now(),
		}).Error
		if err != nil {
			return unavailable("update", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CollectionStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func unavailable(op, name string, err error) error {
	return fmt.Errorf("%w: %s collection %q: %v", domain.ErrStoreUnavailable, op, name, err)
}
