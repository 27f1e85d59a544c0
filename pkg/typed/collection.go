// Package typed binds store collections to Go types.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/hearth/pkg/core"
)

// Store is the subset of core.Service a Collection needs.
type Store interface {
	Create(ctx context.Context, collection, key string, rec core.Record) error
	Read(ctx context.Context, collection, key string) (core.Record, error)
	Update(ctx context.Context, collection, key string, rec core.Record) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]string, error)
	Mutate(ctx context.Context, collection, key string, fn func(core.Record) (core.Record, error)) error
}

var _ Store = (*core.Service)(nil)

// Collection provides type-safe access to one collection. Values are
// converted through their JSON representation, so struct tags apply.
type Collection[T any] struct {
	store Store
	name  string
}

// NewCollection creates a typed view over the named collection.
func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Create stores v under key. It fails with core.ErrAlreadyExists if the key is taken.
func (c *Collection[T]) Create(ctx context.Context, key string, v T) error {
	rec, err := toRecord(v)
	if err != nil {
		return err
	}
	return c.store.Create(ctx, c.name, key, rec)
}

// Get retrieves and decodes the value stored under key.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	rec, err := c.store.Read(ctx, c.name, key)
	if err != nil {
		return zero, err
	}
	return fromRecord[T](rec)
}

// Update replaces the value stored under key.
func (c *Collection[T]) Update(ctx context.Context, key string, v T) error {
	rec, err := toRecord(v)
	if err != nil {
		return err
	}
	return c.store.Update(ctx, c.name, key, rec)
}

// Delete removes the value stored under key.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.name, key)
}

// Keys lists the keys of the collection.
func (c *Collection[T]) Keys(ctx context.Context) ([]string, error) {
	return c.store.List(ctx, c.name)
}

// Mutate decodes the stored value, applies fn and writes the result back.
// An error from fn aborts the write.
func (c *Collection[T]) Mutate(ctx context.Context, key string, fn func(*T) error) error {
	return c.store.Mutate(ctx, c.name, key, func(rec core.Record) (core.Record, error) {
		v, err := fromRecord[T](rec)
		if err != nil {
			return nil, err
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return toRecord(v)
	})
}

func toRecord[T any](v T) (core.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed value: %w", err)
	}

	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("typed value is not a JSON object: %w", err)
	}
	if rec == nil {
		rec = core.Record{}
	}
	return rec, nil
}

func fromRecord[T any](rec core.Record) (T, error) {
	var v T
	data, err := json.Marshal(rec)
	if err != nil {
		return v, fmt.Errorf("record marshal failed: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: unmarshal to target type failed: %v", core.ErrMalformed, err)
	}
	return v, nil
}
