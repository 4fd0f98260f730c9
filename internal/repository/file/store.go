// Package file implements repository.CollectionStore on the local
// filesystem. Every collection is one JSON array document. Writes go to a
// temporary file in the same directory which is synced and then renamed
// over the document, so readers see either the old or the new content.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
)

var _ repository.CollectionStore = (*Store)(nil)

type Store struct {
	dir   string
	locks *repository.CollectionLocks
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{dir: dir, locks: repository.NewCollectionLocks()}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, url.PathEscape(name)+".json")
}

func (s *Store) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(name)
}

func (s *Store) Replace(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	return s.write(name, records)
}

func (s *Store) Update(ctx context.Context, name string, fn repository.UpdateFunc) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	current, err := s.read(name)
	if err != nil {
		return nil, err
	}
	next, changed, err := repository.ApplyUpdate(current, fn)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.write(name, next); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) read(name string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	return repository.DecodeRecords(name, data)
}

func (s *Store) write(name string, records []json.RawMessage) error {
	data, err := repository.EncodeRecords(records)
	if err != nil {
		return err
	}

	target := s.path(name)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("%w: replace collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	return nil
}
