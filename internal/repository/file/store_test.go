package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/dom/kaf-catalog/internal/repository/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStore_LoadMissingCollection(t *testing.T) {
	store := newStore(t)

	records, err := store.Load(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStore_ReplaceAndLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "users", []json.RawMessage{raw(`{"id":"1"}`), raw(`{"id":"2"}`)}))

	records, err := store.Load(ctx, "users")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"id":"2"}`, string(records[1]))

	require.NoError(t, store.Replace(ctx, "users", nil))
	records, err = store.Load(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_CorruptDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(store.path("users"), []byte(`[{"id":"1"`), 0o644))

	_, err := store.Load(ctx, "users")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	called := false
	_, err = store.Update(ctx, "users", func(current []json.RawMessage) ([]json.RawMessage, error) {
		called = true
		return current, nil
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, called)

	data, err := os.ReadFile(store.path("users"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"`, string(data), "a corrupt document is left alone")
}

func TestStore_NamesStayInsideDir(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "../escape/attempt", []json.RawMessage{raw(`{}`)}))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), "/"))

	_, err = os.Stat(filepath.Join(filepath.Dir(store.Dir()), "escape"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Update(ctx, "movies", func(current []json.RawMessage) ([]json.RawMessage, error) {
			return append(current, raw(fmt.Sprintf(`{"n":%d}`, i))), nil
		})
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, "counter", func(current []json.RawMessage) ([]json.RawMessage, error) {
				return append(current, raw(fmt.Sprintf(`{"n":%d}`, i))), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := store.Load(ctx, "counter")
	require.NoError(t, err)
	assert.Len(t, records, workers)
}

func TestStore_ConcurrentLoadSeesWholeDocuments(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	small := []json.RawMessage{raw(`{"v":"old"}`)}
	large := make([]json.RawMessage, 200)
	for i := range large {
		large[i] = raw(`{"v":"new"}`)
	}
	require.NoError(t, store.Replace(ctx, "swap", small))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			next := small
			if i%2 == 0 {
				next = large
			}
			assert.NoError(t, store.Replace(ctx, "swap", next))
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		records, err := store.Load(ctx, "swap")
		require.NoError(t, err)
		assert.True(t, len(records) == len(small) || len(records) == len(large),
			"observed a partial document with %d records", len(records))
	}
}

func TestStore_DistinctCollectionsDoNotBlock(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		store.Update(ctx, "watchlist:a", func(current []json.RawMessage) ([]json.RawMessage, error) {
			close(holding)
			<-release
			return nil, repository.ErrNoChange
		})
	}()
	<-holding
	defer func() {
		close(release)
		<-firstDone
	}()

	finished := make(chan error, 1)
	go func() {
		_, err := store.Update(ctx, "watchlist:b", func(current []json.RawMessage) ([]json.RawMessage, error) {
			return append(current, raw(`{}`)), nil
		})
		finished <- err
	}()

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("update of another collection was blocked")
	}
}

func TestStore_CanceledContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Update(ctx, "users", func(current []json.RawMessage) ([]json.RawMessage, error) {
		t.Fatal("update ran with a canceled context")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (repository.CollectionStore, repository.CollectionStore) {
		dir := t.TempDir()
		a, err := NewStore(dir)
		require.NoError(t, err)
		return a, a
	})
}
