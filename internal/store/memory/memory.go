// Package memory is a core.Store kept in process memory. The CLI uses it for
// dry runs; tests use it as the store collaborator.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/roster/internal/core"
)

// Store holds records per kind in insertion order. It is safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[core.Kind][]core.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[core.Kind][]core.Record)}
}

var _ core.Store = (*Store)(nil)

// Select returns copies of the stored records. When the filter names a date
// column, records without a time value in it are left out.
func (s *Store) Select(ctx context.Context, kind core.Kind, filter core.Filter) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Record, 0, len(s.data[kind]))
	for _, rec := range s.data[kind] {
		if filter.DateColumn != "" && !inWindow(rec[filter.DateColumn], filter.From, filter.Until) {
			continue
		}
		out = append(out, clone(rec))
	}
	return out, nil
}

func inWindow(v any, from, until time.Time) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}

// Insert appends records. A record whose id is already stored fails the
// whole call and nothing is written.
func (s *Store) Insert(ctx context.Context, kind core.Kind, records []core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.data[kind])+len(records))
	for _, rec := range s.data[kind] {
		seen[key(rec["id"])] = true
	}
	for _, rec := range records {
		id := key(rec["id"])
		if seen[id] {
			return fmt.Errorf("duplicate key value violates unique constraint \"%s_pkey\": id %s", kind, id)
		}
		seen[id] = true
	}

	for _, rec := range records {
		s.data[kind] = append(s.data[kind], clone(rec))
	}
	return nil
}

// Upsert inserts records or updates the stored record with the same value in
// conflictKey. Updates keep the stored id and replace every other field.
func (s *Store) Upsert(ctx context.Context, kind core.Kind, records []core.Record, conflictKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.data[kind]
	for _, rec := range records {
		k := key(rec[conflictKey])
		idx := -1
		for i, existing := range rows {
			if key(existing[conflictKey]) == k {
				idx = i
				break
			}
		}
		if idx < 0 {
			rows = append(rows, clone(rec))
			continue
		}

		updated := clone(rec)
		if id, ok := rows[idx]["id"]; ok {
			updated["id"] = id
		}
		rows[idx] = updated
	}
	s.data[kind] = rows
	return nil
}

// Delete removes the records matching pred.
func (s *Store) Delete(ctx context.Context, kind core.Kind, pred core.Predicate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := key(pred.Value)
	kept := s.data[kind][:0]
	for _, rec := range s.data[kind] {
		match := key(rec[pred.Column]) == want
		if pred.Op == core.OpNotEqual {
			match = !match
		}
		if !match {
			kept = append(kept, rec)
		}
	}
	s.data[kind] = kept
	return nil
}

// Len returns the number of stored records of kind.
func (s *Store) Len(kind core.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[kind])
}

func clone(rec core.Record) core.Record {
	out := make(core.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// key renders a field value for equality checks.
func key(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
