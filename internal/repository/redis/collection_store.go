// Package redis implements repository.CollectionStore on Redis. Each
// collection is one string key holding a JSON array. SET replaces it in a
// single command; Update uses WATCH/MULTI so that a concurrent writer from
// another process makes the transaction retry instead of being overwritten.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 16

var _ repository.CollectionStore = (*CollectionStore)(nil)

type CollectionStore struct {
	client *redis.Client
	prefix string
	// in-process writers queue up here instead of burning WATCH retries
	locks *repository.CollectionLocks
}

func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", domain.ErrStoreUnavailable, err)
	}
	return client, nil
}

func NewCollectionStore(client *redis.Client, prefix string) *CollectionStore {
	return &CollectionStore{
		client: client,
		prefix: prefix,
		locks:  repository.NewCollectionLocks(),
	}
}

func (s *CollectionStore) key(name string) string {
	return s.prefix + name
}

func (s *CollectionStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	return s.get(ctx, s.client, name)
}

func (s *CollectionStore) Replace(ctx context.Context, name string, records []json.RawMessage) error {
	data, err := repository.EncodeRecords(records)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: replace collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (s *CollectionStore) Update(ctx context.Context, name string, fn repository.UpdateFunc) ([]json.RawMessage, error) {
	unlock := s.locks.Lock(name)
	defer unlock()

	key := s.key(name)
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		var result []json.RawMessage
		var fnErr error

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := s.get(ctx, tx, name)
			if err != nil {
				return err
			}
			next, changed, err := repository.ApplyUpdate(current, fn)
			if err != nil {
				fnErr = err
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
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)

		if fnErr != nil {
			return nil, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: update collection %q: %v", domain.ErrStoreUnavailable, name, err)
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: update collection %q: too much contention", domain.ErrStoreUnavailable, name)
}

func (s *CollectionStore) Close() error {
	return s.client.Close()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *CollectionStore) get(ctx context.Context, c getter, name string) ([]json.RawMessage, error) {
	data, err := c.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load collection %q: %v", domain.ErrStoreUnavailable, name, err)
	}
	return repository.DecodeRecords(name, data)
}
