package sqlstore

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/roster/internal/core"
)

// WhereBuilder accumulates AND-ed conditions and their bind arguments.
type WhereBuilder struct {
	dialect    Dialect
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder for the dialect.
func (d Dialect) NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{dialect: d, argIndex: 1}
}

// Add appends "col op ?". op is a SQL comparison operator.
func (wb *WhereBuilder) Add(col, op string, value any) {
	wb.conditions = append(wb.conditions,
		fmt.Sprintf("%s %s %s", QuoteIdentifier(col), op, wb.dialect.Placeholder(wb.argIndex)))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddPredicate appends a core.Predicate.
func (wb *WhereBuilder) AddPredicate(p core.Predicate) error {
	switch p.Op {
	case core.OpEqual:
		wb.Add(p.Column, "=", p.Value)
	case core.OpNotEqual:
		wb.Add(p.Column, "<>", p.Value)
	default:
		return fmt.Errorf("unsupported operator %q", p.Op)
	}
	return nil
}

// AddRange appends a half-open [from, until) range. Nil bounds are skipped.
func (wb *WhereBuilder) AddRange(col string, from, until any) {
	if from != nil {
		wb.Add(col, ">=", from)
	}
	if until != nil {
		wb.Add(col, "<", until)
	}
}

// NextArgIndex returns the number of the next placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE ..." (or "" without conditions) and the arguments.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
