package core_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hearth/pkg/core"
)

// MockRepository implements core.Repository in memory.
// It deliberately does NOT implement core.Watchable to test fallback/errors.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]core.Record
	locks   int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		records: make(map[string]core.Record),
	}
}

func (m *MockRepository) Create(ctx context.Context, collection, key string, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[collection+"/"+key]; ok {
		return core.ErrAlreadyExists
	}
	m.records[collection+"/"+key] = rec
	return nil
}

func (m *MockRepository) Read(ctx context.Context, collection, key string) (core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[collection+"/"+key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return rec, nil
}

func (m *MockRepository) Update(ctx context.Context, collection, key string, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[collection+"/"+key]; !ok {
		return core.ErrNotFound
	}
	m.records[collection+"/"+key] = rec
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[collection+"/"+key]; !ok {
		return core.ErrNotFound
	}
	delete(m.records, collection+"/"+key)
	return nil
}

func (m *MockRepository) List(ctx context.Context, collection string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	prefix := collection + "/"
	for id := range m.records {
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			keys = append(keys, id[len(prefix):])
		}
	}
	// Sort for deterministic tests
	sort.Strings(keys)
	return keys, nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

// LockingRepository counts lock acquisitions.
type LockingRepository struct {
	*MockRepository
	mu sync.Mutex
}

func (l *LockingRepository) Lock(collection, key string) func() {
	l.mu.Lock()
	l.locks++
	return l.mu.Unlock
}

func TestService_CRUD(t *testing.T) {
	repo := NewMockRepository()
	service := core.NewService(repo)
	ctx := context.TODO()

	// 1. Create
	if err := service.Create(ctx, "users", "5550001111", core.Record{"name": "alice"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 2. Read
	rec, err := service.Read(ctx, "users", "5550001111")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if rec["name"] != "alice" {
		t.Errorf("expected name 'alice', got '%v'", rec["name"])
	}

	// 3. List
	_ = service.Create(ctx, "users", "5550002222", core.Record{"name": "bob"})
	keys, err := service.List(ctx, "users")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %d", len(keys))
	}

	// 4. Delete
	if err := service.Delete(ctx, "users", "5550001111"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := service.Read(ctx, "users", "5550001111"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after deletion, got %v", err)
	}
}

func TestService_RejectsInvalidNames(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.Background()

	for _, name := range []string{"", "..", ".hidden", "a/b", `a\b`} {
		if err := service.Create(ctx, "users", name, core.Record{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Errorf("key %q: expected ErrInvalidKey, got %v", name, err)
		}
		if _, err := service.List(ctx, name); !errors.Is(err, core.ErrInvalidKey) {
			t.Errorf("collection %q: expected ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestService_ListMatch(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.Background()

	for _, k := range []string{"5550001111-a", "5550001111-b", "5559999999-a"} {
		if err := service.Create(ctx, "orders", k, core.Record{}); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := service.ListMatch(ctx, "orders", "5550001111-*")
	if err != nil {
		t.Fatalf("ListMatch failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "5550001111-a" || keys[1] != "5550001111-b" {
		t.Errorf("unexpected keys: %v", keys)
	}

	if _, err := service.ListMatch(ctx, "orders", "[unclosed"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestService_Mutate(t *testing.T) {
	repo := &LockingRepository{MockRepository: NewMockRepository()}
	service := core.NewService(repo)
	ctx := context.Background()

	if err := service.Create(ctx, "users", "u1", core.Record{"visits": float64(1)}); err != nil {
		t.Fatal(err)
	}

	err := service.Mutate(ctx, "users", "u1", func(rec core.Record) (core.Record, error) {
		rec["visits"] = rec["visits"].(float64) + 1
		return rec, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	rec, _ := service.Read(ctx, "users", "u1")
	if rec["visits"] != float64(2) {
		t.Errorf("expected 2 visits, got %v", rec["visits"])
	}
	if repo.locks != 1 {
		t.Errorf("expected one lock acquisition, got %d", repo.locks)
	}

	if err := service.Mutate(ctx, "users", "ghost", func(rec core.Record) (core.Record, error) {
		return rec, nil
	}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	boom := errors.New("boom")
	if err := service.Mutate(ctx, "users", "u1", func(rec core.Record) (core.Record, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

// gatedRepository holds Update open until released.
type gatedRepository struct {
	*LockingRepository
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepository) Update(ctx context.Context, collection, key string, rec core.Record) error {
	close(g.entered)
	<-g.release
	return g.LockingRepository.Update(ctx, collection, key, rec)
}

func TestService_DeleteWaitsForUpdate(t *testing.T) {
	repo := &gatedRepository{
		LockingRepository: &LockingRepository{MockRepository: NewMockRepository()},
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	service := core.NewService(repo)
	ctx := context.Background()

	if err := service.Create(ctx, "users", "u1", core.Record{"v": float64(1)}); err != nil {
		t.Fatal(err)
	}

	updated := make(chan error, 1)
	go func() { updated <- service.Update(ctx, "users", "u1", core.Record{"v": float64(2)}) }()
	<-repo.entered

	deleted := make(chan error, 1)
	go func() { deleted <- service.Delete(ctx, "users", "u1") }()

	select {
	case err := <-deleted:
		t.Fatalf("Delete finished while Update held the key: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(repo.release)
	if err := <-updated; err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := <-deleted; err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := service.Read(ctx, "users", "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted record came back: %v", err)
	}
}

func TestService_Observer(t *testing.T) {
	var ops []string
	service := core.NewService(NewMockRepository(), core.WithObserver(func(op string, err error) {
		ops = append(ops, op)
	}))
	ctx := context.Background()

	_ = service.Create(ctx, "c", "k", core.Record{})
	_, _ = service.Read(ctx, "c", "k")
	_ = service.Delete(ctx, "c", "k")

	if len(ops) != 3 || ops[0] != "create" || ops[1] != "read" || ops[2] != "delete" {
		t.Errorf("unexpected observed ops: %v", ops)
	}
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())

	_, err := service.Watch(context.Background(), "**")
	if err == nil {
		t.Fatal("expected error for non-watchable repo")
	}
	if err.Error() != "repository does not support watching" {
		t.Errorf("unexpected error msg: %v", err)
	}
}

func TestService_CanceledContext(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Create(ctx, "c", "k", core.Record{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
