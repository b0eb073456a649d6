// Package sqlstore builds the SQL shared by the postgres and sqlite stores:
// table DDL derived from a core.Schema, insert and upsert statements, and
// WHERE clauses with numbered or positional placeholders.
package sqlstore

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/roster/internal/core"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string
	// Placeholder renders the n-th bind parameter, 1-based.
	Placeholder func(n int) string
	// ColumnType maps a field type to a column type.
	ColumnType func(core.FieldType) string
}

// Postgres uses $n placeholders and native date, numeric and boolean types.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	ColumnType: func(t core.FieldType) string {
		switch t {
		case core.FieldNumber:
			return "NUMERIC(12,2)"
		case core.FieldInt, core.FieldPositiveInt:
			return "INTEGER"
		case core.FieldDate:
			return "DATE"
		case core.FieldDateTime:
			return "TIMESTAMPTZ"
		case core.FieldBool:
			return "BOOLEAN"
		default:
			return "TEXT"
		}
	},
}

// SQLite stores dates, timestamps and amounts as sortable text. Declared
// DATE or DATETIME columns would be converted by the driver on scan.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	ColumnType: func(t core.FieldType) string {
		switch t {
		case core.FieldInt, core.FieldPositiveInt, core.FieldBool:
			return "INTEGER"
		default:
			return "TEXT"
		}
	},
}

// QuoteIdentifier quotes a SQL identifier to prevent injection.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteColumns quotes each column name in the slice.
func QuoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = QuoteIdentifier(col)
	}
	return quoted
}

// TableName is the table holding a kind.
func TableName(kind core.Kind) string {
	return string(kind)
}

// CreateTable returns the CREATE TABLE IF NOT EXISTS statement for schema.
// The id column is the primary key; a natural key other than id is UNIQUE.
func (d Dialect) CreateTable(schema core.Schema) string {
	defs := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		def := QuoteIdentifier(f.Name) + " " + d.ColumnType(f.Type)
		switch {
		case f.Name == "id":
			def += " PRIMARY KEY"
		case f.Name == schema.NaturalKey:
			def += " NOT NULL UNIQUE"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		QuoteIdentifier(TableName(schema.Kind)), strings.Join(defs, ",\n\t"))
}

// CreateDateIndex returns the index statement for the export date column,
// or "" when the schema has none.
func (d Dialect) CreateDateIndex(schema core.Schema) string {
	if schema.DateField == "" {
		return ""
	}
	table := TableName(schema.Kind)
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		QuoteIdentifier("idx_"+table+"_"+schema.DateField),
		QuoteIdentifier(table),
		QuoteIdentifier(schema.DateField))
}

func (d Dialect) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

// Insert returns a single-row INSERT for the schema's columns.
func (d Dialect) Insert(schema core.Schema) string {
	cols := schema.Columns()
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(TableName(schema.Kind)),
		strings.Join(QuoteColumns(cols), ", "),
		d.placeholders(len(cols)))
}

// Upsert returns a single-row INSERT that updates every column except id and
// the conflict key when a row with the same conflict key exists. Both
// Postgres and SQLite accept the ON CONFLICT ... DO UPDATE form.
func (d Dialect) Upsert(schema core.Schema, conflictKey string) string {
	cols := schema.Columns()
	var sets []string
	for _, c := range cols {
		if c == "id" || c == conflictKey {
			continue
		}
		q := QuoteIdentifier(c)
		sets = append(sets, q+" = excluded."+q)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		d.Insert(schema), QuoteIdentifier(conflictKey), strings.Join(sets, ", "))
}

// Select returns the query for every column of the schema filtered by where,
// ordered by the export date column (when present) and then id.
func (d Dialect) Select(schema core.Schema, where string) string {
	order := QuoteIdentifier("id")
	if schema.DateField != "" {
		order = QuoteIdentifier(schema.DateField) + ", " + order
	}
	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(QuoteColumns(schema.Columns()), ", "),
		QuoteIdentifier(TableName(schema.Kind)),
		where,
		order)
}

// Delete returns the DELETE statement for where.
func (d Dialect) Delete(schema core.Schema, where string) string {
	return fmt.Sprintf("DELETE FROM %s%s", QuoteIdentifier(TableName(schema.Kind)), where)
}
