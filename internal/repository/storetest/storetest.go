// Package storetest holds behavior checks shared by every
// repository.CollectionStore backend.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns two stores over the same medium. Backends that serialize
// across processes return two independent stores, so concurrent updates
// through them behave like two processes. The file backend only serializes
// within one process and returns the same store twice.
type Factory func(t *testing.T) (repository.CollectionStore, repository.CollectionStore)

// Run exercises the CollectionStore contract against the stores from newStores.
func Run(t *testing.T, newStores Factory) {
	t.Run("missing collection is empty", func(t *testing.T) {
		store, _ := newStores(t)

		records, err := store.Load(context.Background(), unique("missing"))
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("replace then load", func(t *testing.T) {
		store, other := newStores(t)
		ctx := context.Background()
		name := unique("replace")

		require.NoError(t, store.Replace(ctx, name, []json.RawMessage{
			json.RawMessage(`{"id":"1"}`),
			json.RawMessage(`{"id":"2"}`),
		}))

		records, err := other.Load(ctx, name)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.JSONEq(t, `{"id":"1"}`, string(records[0]))
	})

	t.Run("update returns and persists the new records", func(t *testing.T) {
		store, other := newStores(t)
		ctx := context.Background()
		name := unique("update")

		result, err := store.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
			assert.Empty(t, current)
			return append(current, json.RawMessage(`{"n":1}`)), nil
		})
		require.NoError(t, err)
		assert.Len(t, result, 1)

		records, err := other.Load(ctx, name)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("update error leaves collection untouched", func(t *testing.T) {
		store, _ := newStores(t)
		ctx := context.Background()
		name := unique("rollback")
		boom := errors.New("boom")

		require.NoError(t, store.Replace(ctx, name, []json.RawMessage{json.RawMessage(`{"n":1}`)}))

		_, err := store.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		records, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("no change returns current records", func(t *testing.T) {
		store, _ := newStores(t)
		ctx := context.Background()
		name := unique("nochange")

		require.NoError(t, store.Replace(ctx, name, []json.RawMessage{json.RawMessage(`{"n":1}`)}))

		result, err := store.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
			return nil, repository.ErrNoChange
		})
		require.NoError(t, err)
		assert.Len(t, result, 1)
	})

	t.Run("concurrent updates lose nothing", func(t *testing.T) {
		store, other := newStores(t)
		ctx := context.Background()
		name := unique("concurrent")

		const perStore = 10
		var wg sync.WaitGroup
		for i := 0; i < perStore*2; i++ {
			s := store
			if i%2 == 1 {
				s = other
			}
			wg.Add(1)
			go func(s repository.CollectionStore, i int) {
				defer wg.Done()
				_, err := s.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
					return append(current, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))), nil
				})
				assert.NoError(t, err)
			}(s, i)
		}
		wg.Wait()

		records, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Len(t, records, perStore*2)
	})

	t.Run("interleaved appends and removals lose nothing", func(t *testing.T) {
		store, other := newStores(t)
		ctx := context.Background()
		name := unique("interleaved")

		const n = 20
		seed := make([]json.RawMessage, 0, n)
		for i := 0; i < n; i++ {
			seed = append(seed, record("seed", i))
		}
		require.NoError(t, store.Replace(ctx, name, seed))

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				_, err := store.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
					return without(current, fmt.Sprintf("seed-%d", i)), nil
				})
				assert.NoError(t, err)
			}(i)
			go func(i int) {
				defer wg.Done()
				_, err := other.Update(ctx, name, func(current []json.RawMessage) ([]json.RawMessage, error) {
					return append(current, record("added", i)), nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		records, err := other.Load(ctx, name)
		require.NoError(t, err)
		require.Len(t, records, n)

		seen := make(map[string]bool, n)
		for _, r := range records {
			seen[recordID(r)] = true
		}
		for i := 0; i < n; i++ {
			assert.True(t, seen[fmt.Sprintf("added-%d", i)], "added record %d missing", i)
		}
	})
}

func record(kind string, i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":"%s-%d"}`, kind, i))
}

// recordID compares by decoded id; postgres jsonb does not keep the
// original formatting.
func recordID(r json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r, &v); err != nil {
		return ""
	}
	return v.ID
}

func without(records []json.RawMessage, id string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		if recordID(r) != id {
			out = append(out, r)
		}
	}
	return out
}

func unique(prefix string) string {
	return prefix + ":" + uuid.NewString()
}
