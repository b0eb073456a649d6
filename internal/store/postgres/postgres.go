// Package postgres is a core.Store backed by PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/store/sqlstore"
)

// Store persists records in one table per kind.
type Store struct {
	pool    *pgxpool.Pool
	catalog *core.Catalog
	logger  *slog.Logger
}

// New creates a Store. Call EnsureSchema before first use on an empty
// database.
func New(pool *pgxpool.Pool, catalog *core.Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, catalog: catalog, logger: logger}
}

var _ core.Store = (*Store)(nil)

// EnsureSchema creates the tables and date indexes of every kind in the
// catalog if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, schema := range s.catalog.All() {
		if _, err := s.pool.Exec(ctx, sqlstore.Postgres.CreateTable(schema)); err != nil {
			return fmt.Errorf("create table %s: %w", schema.Kind, err)
		}
		if idx := sqlstore.Postgres.CreateDateIndex(schema); idx != "" {
			if _, err := s.pool.Exec(ctx, idx); err != nil {
				return fmt.Errorf("create index %s: %w", schema.Kind, err)
			}
		}
	}
	s.logger.Debug("schema ready", "kinds", len(s.catalog.Kinds()))
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

	wb := sqlstore.Postgres.NewWhereBuilder()
	if filter.DateColumn != "" {
		wb.AddRange(filter.DateColumn, bound(filter.From), bound(filter.Until))
	}
	where, args := wb.Build()

	rows, err := s.pool.Query(ctx, sqlstore.Postgres.Select(schema, where), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rec := make(core.Record, len(values))
		for i, f := range schema.Fields {
			if v := decode(f.Type, values[i]); v != nil {
				rec[f.Name] = v
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func bound(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// Insert copies records in a single transaction. A duplicate id rolls back
// the whole call.
func (s *Store) Insert(ctx context.Context, kind core.Kind, records []core.Record) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = encodeRow(schema, rec)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{sqlstore.TableName(kind)},
		schema.Columns(),
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy %s: %w", kind, err)
	}
	return tx.Commit(ctx)
}

// Upsert sends one INSERT ... ON CONFLICT per record in a single batch and
// transaction.
func (s *Store) Upsert(ctx context.Context, kind core.Kind, records []core.Record, conflictKey string) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}

	query := sqlstore.Postgres.Upsert(schema, conflictKey)
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, encodeRow(schema, rec)...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	return tx.Commit(ctx)
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, kind core.Kind, pred core.Predicate) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}

	wb := sqlstore.Postgres.NewWhereBuilder()
	if err := wb.AddPredicate(pred); err != nil {
		return err
	}
	where, args := wb.Build()

	tag, err := s.pool.Exec(ctx, sqlstore.Postgres.Delete(schema, where), args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	s.logger.Debug("deleted rows", "kind", kind, "rows", tag.RowsAffected())
	return nil
}

// encodeRow returns the column values of rec in schema order.
func encodeRow(schema core.Schema, rec core.Record) []any {
	out := make([]any, len(schema.Fields))
	for i, f := range schema.Fields {
		out[i] = encode(rec[f.Name])
	}
	return out
}

func encode(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return pgtype.Numeric{Int: x.Coefficient(), Exp: x.Exponent(), Valid: true}
	case core.MembershipType:
		return x.String()
	case time.Time:
		return x
	default:
		return v
	}
}

// decode converts a pgx value back into the Record representation.
func decode(t core.FieldType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		if !x.Valid || x.NaN || x.Int == nil {
			return nil
		}
		return decimal.NewFromBigInt(new(big.Int).Set(x.Int), x.Exp)
	case time.Time:
		if t == core.FieldDate {
			y, m, d := x.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		}
		return x.Local()
	case int32:
		return int(x)
	case int64:
		return int(x)
	case string:
		if t == core.FieldMembership {
			return core.ParseMembershipType(x)
		}
		return x
	default:
		return v
	}
}
