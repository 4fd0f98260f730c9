package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dom/kaf-catalog/internal/domain"
)

// Collection is a typed view over one named collection of a CollectionStore.
type Collection[T any] struct {
	store CollectionStore
	name  string
}

func NewCollection[T any](store CollectionStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	raw, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c.name, raw)
}

func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	raw, err := encodeAll(items)
	if err != nil {
		return err
	}
	return c.store.Replace(ctx, c.name, raw)
}

// Update decodes the collection, hands it to fn and stores what fn returns.
// fn may return ErrNoChange to leave the collection untouched.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	raw, err := c.store.Update(ctx, c.name, func(current []json.RawMessage) ([]json.RawMessage, error) {
		items, err := decodeAll[T](c.name, current)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return encodeAll(next)
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c.name, raw)
}

func decodeAll[T any](name string, raw []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("%w: collection %q record %d: %v", domain.ErrStoreUnavailable, name, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeAll[T any](items []T) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		raw = append(raw, b)
	}
	return raw, nil
}

// DecodeRecords parses a stored collection document. An empty document is an
// empty collection; anything unparsable is reported as ErrStoreUnavailable.
func DecodeRecords(name string, data []byte) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: collection %q is corrupt: %v", domain.ErrStoreUnavailable, name, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func EncodeRecords(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}

// ApplyUpdate runs fn against current and translates ErrNoChange. The
// returned bool reports whether the result has to be written.
func ApplyUpdate(current []json.RawMessage, fn UpdateFunc) ([]json.RawMessage, bool, error) {
	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		next = []json.RawMessage{}
	}
	return next, true, nil
}
