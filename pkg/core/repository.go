package core

import "context"

// Repository defines the contract for storing and retrieving records.
// Every operation is addressed by a collection name and a key unique within it.
type Repository interface {
	// Create persists a new record. It fails with ErrAlreadyExists if the key is taken.
	Create(ctx context.Context, collection, key string, rec Record) error

	// Read retrieves a record. Absence is reported as ErrNotFound.
	Read(ctx context.Context, collection, key string) (Record, error)

	// Update replaces the whole record. It fails with ErrNotFound if nothing is stored yet.
	Update(ctx context.Context, collection, key string, rec Record) error

	// Delete removes a record, or reports ErrNotFound.
	Delete(ctx context.Context, collection, key string) error

	// List returns the sorted keys of a collection. A missing collection is empty, not an error.
	List(ctx context.Context, collection string) ([]string, error)

	// Initialize ensures the underlying storage is ready (e.g., create directories).
	Initialize(ctx context.Context) error
}

// Locker is implemented by repositories able to serialize access per key.
// The returned function releases the lock.
type Locker interface {
	Lock(collection, key string) (unlock func())
}

// Watchable is implemented by repositories able to report changes made to
// their records, including changes made by other processes.
type Watchable interface {
	// Watch emits events for records whose "collection/key" matches pattern.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
