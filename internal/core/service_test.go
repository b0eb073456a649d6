package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/core/kinds"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

// ============================================================================
// Test Helpers
// ============================================================================

var errStoreDown = errors.New("connection refused")

// faultyStore wraps a store and lets tests fail chosen calls.
type faultyStore struct {
	core.Store

	mu       sync.Mutex
	calls    []string
	deleteFn func() error
	writeFn  func(call int) error // call counts Insert and Upsert calls from 1
	writes   int
}

func (f *faultyStore) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *faultyStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *faultyStore) write() error {
	f.mu.Lock()
	f.writes++
	n := f.writes
	fn := f.writeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(n)
	}
	return nil
}

func (f *faultyStore) Delete(ctx context.Context, kind core.Kind, pred core.Predicate) error {
	f.record("delete")
	if f.deleteFn != nil {
		if err := f.deleteFn(); err != nil {
			return err
		}
	}
	return f.Store.Delete(ctx, kind, pred)
}

func (f *faultyStore) Insert(ctx context.Context, kind core.Kind, records []core.Record) error {
	f.record("insert")
	if err := f.write(); err != nil {
		return err
	}
	return f.Store.Insert(ctx, kind, records)
}

func (f *faultyStore) Upsert(ctx context.Context, kind core.Kind, records []core.Record, key string) error {
	f.record("upsert")
	if err := f.write(); err != nil {
		return err
	}
	return f.Store.Upsert(ctx, kind, records, key)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedNow is the clock of every test service.
var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)

func newService(store core.Store, batchSize int) *core.Service {
	return core.NewService(core.ServiceConfig{
		Store:     store,
		Catalog:   kinds.DefaultCatalog(),
		Logger:    quietLogger(),
		BatchSize: batchSize,
		Now:       func() time.Time { return fixedNow },
	})
}

func newMemoryService() (*core.Service, *memory.Store) {
	store := memory.New()
	return newService(store, 0), store
}

func runImport(t *testing.T, svc *core.Service, kind core.Kind, mode core.Mode, fileName, content string) core.ImportResult {
	t.Helper()
	return svc.Import(context.Background(), core.ImportRequest{
		Data:     []byte(content),
		FileName: fileName,
		Kind:     kind,
		Mode:     mode,
	})
}

func selectAll(t *testing.T, store core.Store, kind core.Kind) []core.Record {
	t.Helper()
	recs, err := store.Select(context.Background(), kind, core.Filter{})
	if err != nil {
		t.Fatalf("select %s: %v", kind, err)
	}
	return recs
}

func newCatalog(t *testing.T) *core.Catalog {
	t.Helper()
	return kinds.DefaultCatalog()
}
