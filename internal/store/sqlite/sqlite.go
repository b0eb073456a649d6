// Package sqlite is a core.Store backed by an embedded SQLite database
// (modernc.org/sqlite, no cgo). The CLI uses it for local files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/store/sqlstore"

	_ "modernc.org/sqlite"
)

// Stored text layouts. Both sort lexically in time order.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05.000000"
)

// Open opens the database at path. ":memory:" databases are limited to one
// connection, since every connection would otherwise get its own database.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Store persists records in one table per kind.
type Store struct {
	db      *sql.DB
	catalog *core.Catalog
	logger  *slog.Logger
}

// New creates a Store on db.
func New(db *sql.DB, catalog *core.Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, catalog: catalog, logger: logger}
}

var _ core.Store = (*Store)(nil)

// EnsureSchema creates missing tables and date indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, schema := range s.catalog.All() {
		if _, err := s.db.ExecContext(ctx, sqlstore.SQLite.CreateTable(schema)); err != nil {
			return fmt.Errorf("create table %s: %w", schema.Kind, err)
		}
		if idx := sqlstore.SQLite.CreateDateIndex(schema); idx != "" {
			if _, err := s.db.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("create index %s: %w", schema.Kind, err)
			}
		}
	}
	return nil
}

func (s *Store) schema(kind core.Kind) (core.Schema, error) {
	schema, ok := s.catalog.Get(kind)
	if !ok {
		return core.Schema{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
	return schema, nil
}

// Select implements core.Store.
func (s *Store) Select(ctx context.Context, kind core.Kind, filter core.Filter) ([]core.Record, error) {
	schema, err := s.schema(kind)
	if err != nil {
		return nil, err
	}

	wb := sqlstore.SQLite.NewWhereBuilder()
	if filter.DateColumn != "" {
		f, ok := schema.Field(filter.DateColumn)
		if !ok {
			return nil, fmt.Errorf("unknown column %q for %s", filter.DateColumn, kind)
		}
		wb.AddRange(filter.DateColumn, bound(f.Type, filter.From), bound(f.Type, filter.Until))
	}
	where, args := wb.Build()

	rows, err := s.db.QueryContext(ctx, sqlstore.SQLite.Select(schema, where), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Record
	for rows.Next() {
		values := make([]any, len(schema.Fields))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}

		rec := make(core.Record, len(values))
		for i, f := range schema.Fields {
			v, err := decode(f.Type, values[i])
			if err != nil {
				return nil, fmt.Errorf("decode %s.%s: %w", kind, f.Name, err)
			}
			if v != nil {
				rec[f.Name] = v
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// bound encodes a window edge like the column it is compared with.
func bound(t core.FieldType, v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return encode(t, v)
}

// Insert writes records in one transaction.
func (s *Store) Insert(ctx context.Context, kind core.Kind, records []core.Record) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}
	return s.execEach(ctx, schema, sqlstore.SQLite.Insert(schema), records)
}

// Upsert writes records in one transaction, updating rows that share the
// conflict key.
func (s *Store) Upsert(ctx context.Context, kind core.Kind, records []core.Record, conflictKey string) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}
	return s.execEach(ctx, schema, sqlstore.SQLite.Upsert(schema, conflictKey), records)
}

func (s *Store) execEach(ctx context.Context, schema core.Schema, query string, records []core.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", schema.Kind, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, encodeRow(schema, rec)...); err != nil {
			return fmt.Errorf("write %s: %w", schema.Kind, err)
		}
	}
	return tx.Commit()
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, kind core.Kind, pred core.Predicate) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}

	wb := sqlstore.SQLite.NewWhereBuilder()
	if err := wb.AddPredicate(pred); err != nil {
		return err
	}
	where, args := wb.Build()

	res, err := s.db.ExecContext(ctx, sqlstore.SQLite.Delete(schema, where), args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("deleted rows", "kind", kind, "rows", n)
	}
	return nil
}

func encodeRow(schema core.Schema, rec core.Record) []any {
	out := make([]any, len(schema.Fields))
	for i, f := range schema.Fields {
		out[i] = encode(f.Type, rec[f.Name])
	}
	return out
}

func encode(t core.FieldType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return x.String()
	case core.MembershipType:
		return x.String()
	case time.Time:
		if t == core.FieldDate {
			return x.Format(dateLayout)
		}
		return x.UTC().Format(dateTimeLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	default:
		return v
	}
}

func decode(t core.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch t {
	case core.FieldNumber:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return nil, err
		}
		return d, nil
	case core.FieldDate:
		return time.ParseInLocation(dateLayout, fmt.Sprint(v), time.Local)
	case core.FieldDateTime:
		ts, err := time.Parse(dateTimeLayout, fmt.Sprint(v))
		if err != nil {
			return nil, err
		}
		return ts.Local(), nil
	case core.FieldInt, core.FieldPositiveInt:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
		return int(n), nil
	case core.FieldBool:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
		return n != 0, nil
	case core.FieldMembership:
		return core.ParseMembershipType(fmt.Sprint(v)), nil
	default:
		return fmt.Sprint(v), nil
	}
}
