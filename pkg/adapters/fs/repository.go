package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/hearth/pkg/core"
)

const recordExt = ".json"

// Repository implements core.Repository with one JSON file per record:
// <Path>/<collection>/<key>.json.
type Repository struct {
	Path   string
	config Config
	locks  *keyLocks

	mu            sync.RWMutex
	watcherActive bool
	counters      map[string]int
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string
	MustExist    bool
	KeyLocks     bool // Serialize read-modify-write cycles per (collection, key)
	Logger       *slog.Logger
	EventBuffer  int
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}

	r := &Repository{
		Path:     config.Path,
		config:   config,
		counters: make(map[string]int),
	}
	if config.KeyLocks {
		r.locks = newKeyLocks()
	}
	return r
}

// Initialize ensures the root directory exists.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("data path does not exist: %s", r.Path)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrStorageIO, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("data path is not a directory: %s", r.Path)
		}
		return nil
	}

	if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %v", core.ErrStorageIO, err)
	}
	return nil
}

func (r *Repository) collectionDir(collection string) string {
	return filepath.Join(r.Path, collection)
}

func (r *Repository) recordPath(collection, key string) string {
	return filepath.Join(r.Path, collection, key+recordExt)
}

func (r *Repository) count(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[op]++
}

// Create persists a new record. The collection directory is created on demand.
//
// Concurrent creates of the same key are settled by the filesystem:
// exactly one wins, the others get core.ErrAlreadyExists.
func (r *Repository) Create(ctx context.Context, collection, key string, rec core.Record) error {
	r.count("create")

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record %s/%s: %w", collection, key, err)
	}

	if err := os.MkdirAll(r.collectionDir(collection), 0755); err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %v", core.ErrStorageIO, collection, err)
	}

	if err := createFileExclusive(r.recordPath(collection, key), data, 0644); err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return fmt.Errorf("%w: %s/%s", core.ErrAlreadyExists, collection, key)
		}
		return fmt.Errorf("%w: failed to create %s/%s: %v", core.ErrStorageIO, collection, key, err)
	}

	r.config.Logger.Debug("record created", "collection", collection, "key", key)
	return nil
}

// Read retrieves a record from the filesystem.
func (r *Repository) Read(ctx context.Context, collection, key string) (core.Record, error) {
	r.count("read")

	data, err := os.ReadFile(r.recordPath(collection, key))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", core.ErrNotFound, collection, key)
		}
		return nil, fmt.Errorf("%w: failed to read %s/%s: %v", core.ErrStorageIO, collection, key, err)
	}

	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", core.ErrMalformed, collection, key, err)
	}
	if rec == nil {
		// A stored JSON null is treated as an empty record
		rec = core.Record{}
	}
	return rec, nil
}

// Update replaces the full content of an existing record.
// The new content is renamed over the old file, so readers observe either version in full.
// The existence check and the rename are two steps: core.Service runs Update and
// Delete under the key lock, direct callers racing a Delete may recreate the record.
func (r *Repository) Update(ctx context.Context, collection, key string, rec core.Record) error {
	r.count("update")

	path := r.recordPath(collection, key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", core.ErrNotFound, collection, key)
		}
		return fmt.Errorf("%w: failed to stat %s/%s: %v", core.ErrStorageIO, collection, key, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record %s/%s: %w", collection, key, err)
	}

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to update %s/%s: %v", core.ErrStorageIO, collection, key, err)
	}

	r.config.Logger.Debug("record updated", "collection", collection, "key", key)
	return nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, collection, key string) error {
	r.count("delete")

	if err := os.Remove(r.recordPath(collection, key)); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", core.ErrNotFound, collection, key)
		}
		return fmt.Errorf("%w: failed to remove %s/%s: %v", core.ErrStorageIO, collection, key, err)
	}

	r.config.Logger.Debug("record deleted", "collection", collection, "key", key)
	return nil
}

// List returns the sorted keys stored in a collection.
func (r *Repository) List(ctx context.Context, collection string) ([]string, error) {
	r.count("list")

	entries, err := os.ReadDir(r.collectionDir(collection))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: failed to list %s: %v", core.ErrStorageIO, collection, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if key, ok := keyFromFilename(e.Name()); ok && !e.IsDir() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Collections returns the sorted names of the collections present on disk.
func (r *Repository) Collections() ([]string, error) {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStorageIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Lock implements core.Locker. Without KeyLocks it is a no-op.
func (r *Repository) Lock(collection, key string) func() {
	if r.locks == nil {
		return func() {}
	}
	return r.locks.lock(collection + "/" + key)
}

// KeyLocking reports whether per-key serialization is enabled.
func (r *Repository) KeyLocking() bool {
	return r.locks != nil
}

// keyFromFilename strips the record extension and skips temp files.
func keyFromFilename(name string) (string, bool) {
	if strings.HasPrefix(name, TempFilePrefix) || !strings.HasSuffix(name, recordExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, recordExt)
	if key == "" {
		return "", false
	}
	return key, true
}

// resolveID maps an absolute file path back to its (collection, key) pair.
func (r *Repository) resolveID(path string) (collection, key string, err error) {
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("path %s is not a record", rel)
	}
	key, ok := keyFromFilename(parts[1])
	if !ok {
		return "", "", fmt.Errorf("path %s is not a record", rel)
	}
	return parts[0], key, nil
}

var _ core.Repository = (*Repository)(nil)
var _ core.Locker = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
