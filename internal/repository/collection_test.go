package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/repository"
	"github.com/dom/kaf-catalog/internal/repository/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newFileStore(t *testing.T) *file.Store {
	t.Helper()
	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr error
	}{
		{name: "empty document", data: "", wantLen: 0},
		{name: "empty array", data: "[]", wantLen: 0},
		{name: "null", data: "null", wantLen: 0},
		{name: "two records", data: `[{"id":"1"},{"id":"2"}]`, wantLen: 2},
		{name: "truncated", data: `[{"id":"1"}`, wantErr: domain.ErrStoreUnavailable},
		{name: "not an array", data: `{"id":"1"}`, wantErr: domain.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := repository.DecodeRecords("test", []byte(tt.data))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	current := []json.RawMessage{json.RawMessage(`{"id":"1"}`)}

	next, changed, err := repository.ApplyUpdate(current, func(c []json.RawMessage) ([]json.RawMessage, error) {
		return nil, repository.ErrNoChange
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, current, next)

	boom := errors.New("boom")
	_, _, err = repository.ApplyUpdate(current, func(c []json.RawMessage) ([]json.RawMessage, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	next, changed, err = repository.ApplyUpdate(current, func(c []json.RawMessage) ([]json.RawMessage, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotNil(t, next, "a nil result is stored as an empty collection")
	assert.Empty(t, next)
}

func TestCollection_RoundTrip(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()
	coll := repository.NewCollection[record](store, "records")

	all, err := coll.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "a never written collection is empty")

	require.NoError(t, coll.Replace(ctx, []record{{ID: "1", Name: "one"}}))

	updated, err := coll.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{ID: "2", Name: "two"}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []record{{ID: "1", Name: "one"}, {ID: "2", Name: "two"}}, updated)

	all, err = coll.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, all)
}

func TestCollection_UndecodableRecord(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "records", []json.RawMessage{json.RawMessage(`"not an object"`)}))

	coll := repository.NewCollection[record](store, "records")
	_, err := coll.All(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	called := false
	_, err = coll.Update(ctx, func(items []record) ([]record, error) {
		called = true
		return items, nil
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, called, "update must not run on records it could not decode")
}
