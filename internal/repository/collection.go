package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/unclebandit/coldmail-backend/internal/store"
)

// Store keys, one JSON array per entity collection
const (
	ContactsKey    = "coldmail-contacts"
	TemplatesKey   = "coldmail-templates"
	CampaignsKey   = "coldmail-campaigns"
	DeliveryLogKey = "coldmail-email-logs"
)

// CollectionKeys lists every key the repositories persist under
func CollectionKeys() []string {
	return []string{ContactsKey, TemplatesKey, CampaignsKey, DeliveryLogKey}
}

// LockCollections takes the store lock of every collection, always in
// CollectionKeys order. No mutation can start or be in flight until the
// returned func is called.
func LockCollections(ctx context.Context, s store.Store) (func(), error) {
	var held []func()
	unlockAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, key := range CollectionKeys() {
		unlock, err := s.Lock(ctx, key)
		if err != nil {
			unlockAll()
			return nil, err
		}
		held = append(held, unlock)
	}
	return unlockAll, nil
}

// collection is a JSON array of T persisted under one store key. Reads see
// one whole array; mutations read, change and write it back while holding
// the store lock named after the key.
type collection[T any] struct {
	store store.Store
	key   string
}

func newCollection[T any](s store.Store, key string) *collection[T] {
	return &collection[T]{store: s, key: key}
}

func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *collection[T]) save(ctx context.Context, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	return c.store.Set(ctx, c.key, data)
}

// read hands fn the current items. fn must not retain the slice.
func (c *collection[T]) read(ctx context.Context, fn func(items []T) error) error {
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	return fn(items)
}

// mutate persists whatever fn returns. If fn fails nothing is written.
func (c *collection[T]) mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	unlock, err := c.store.Lock(ctx, c.key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", c.key, err)
	}
	defer unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(ctx, updated)
}

func newID() string {
	return uuid.NewString()
}
