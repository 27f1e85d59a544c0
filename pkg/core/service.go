package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Observer is notified after every storage operation with its name and outcome.
type Observer func(op string, err error)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver registers a callback invoked after each operation (e.g. metrics).
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		s.observer = o
	}
}

// Service handles name validation and read-modify-write on top of a Repository.
type Service struct {
	repo     Repository
	observer Observer
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the wrapped repository.
func (s *Service) Repository() Repository {
	return s.repo
}

// ValidateName checks that a collection or key can be used as a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidKey)
	case len(name) > 200:
		return fmt.Errorf("%w: name too long", ErrInvalidKey)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidKey, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidKey, name)
	}
	return nil
}

func validatePair(collection, key string) error {
	if err := ValidateName(collection); err != nil {
		return err
	}
	return ValidateName(key)
}

func (s *Service) observe(op string, err error) {
	if s.observer != nil {
		s.observer(op, err)
	}
}

// Create stores a new record.
func (s *Service) Create(ctx context.Context, collection, key string, rec Record) (err error) {
	defer func() { s.observe("create", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePair(collection, key); err != nil {
		return err
	}
	return s.repo.Create(ctx, collection, key, rec)
}

// Read retrieves a record.
func (s *Service) Read(ctx context.Context, collection, key string) (rec Record, err error) {
	defer func() { s.observe("read", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePair(collection, key); err != nil {
		return nil, err
	}
	return s.repo.Read(ctx, collection, key)
}

// Update replaces an existing record. With a Locker repository it holds the
// key lock, so it cannot recreate a record deleted concurrently.
func (s *Service) Update(ctx context.Context, collection, key string, rec Record) error {
	if err := validatePair(collection, key); err != nil {
		s.observe("update", err)
		return err
	}
	defer s.lock(collection, key)()
	return s.update(ctx, collection, key, rec)
}

// update writes without taking the key lock; the caller holds it when needed.
func (s *Service) update(ctx context.Context, collection, key string, rec Record) (err error) {
	defer func() { s.observe("update", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePair(collection, key); err != nil {
		return err
	}
	return s.repo.Update(ctx, collection, key, rec)
}

// Delete removes a record. With a Locker repository it waits for any
// in-flight Update or Mutate of the same key.
func (s *Service) Delete(ctx context.Context, collection, key string) (err error) {
	defer func() { s.observe("delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePair(collection, key); err != nil {
		return err
	}
	defer s.lock(collection, key)()
	return s.repo.Delete(ctx, collection, key)
}

// lock takes the key lock when the repository supports it.
func (s *Service) lock(collection, key string) (unlock func()) {
	if l, ok := s.repo.(Locker); ok {
		return l.Lock(collection, key)
	}
	return func() {}
}

// List returns the keys of a collection.
func (s *Service) List(ctx context.Context, collection string) (keys []string, err error) {
	defer func() { s.observe("list", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName(collection); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, collection)
}

// ListMatch returns the keys of a collection matching a glob pattern (e.g. "555*").
func (s *Service) ListMatch(ctx context.Context, collection, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	keys, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(keys))
	for _, k := range keys {
		ok, err := doublestar.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Initialize prepares the underlying storage.
func (s *Service) Initialize(ctx context.Context) error {
	return s.repo.Initialize(ctx)
}

// Mutate performs a read-modify-write of a single record.
// When the repository implements Locker the whole cycle holds the per-key lock;
// otherwise concurrent mutations of the same key may lose updates.
func (s *Service) Mutate(ctx context.Context, collection, key string, fn func(Record) (Record, error)) error {
	if err := validatePair(collection, key); err != nil {
		return err
	}

	defer s.lock(collection, key)()

	rec, err := s.Read(ctx, collection, key)
	if err != nil {
		return err
	}

	next, err := fn(rec)
	if err != nil {
		return err
	}

	return s.update(ctx, collection, key, next)
}

// Watch observes changes in the repository if supported.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	return w.Watch(ctx, pattern)
}
