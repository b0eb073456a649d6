package core

// validation.go turns raw records into canonical records.
//
// Validation happens at two levels:
//  1. Header validation: every required field must resolve to a header of
//     the file, otherwise the whole file is rejected with a SchemaError.
//  2. Row validation: each row is checked on its own. A bad row collects
//     RowErrors and is left out; it never stops the rows after it.

import (
	"time"

	"github.com/JonMunkholm/roster/internal/tabular"
)

// Row-level messages shown to users.
const (
	msgMissingRequired = "Missing required fields"
	msgInvalidEmail    = "Invalid email format"
	msgInvalidAmount   = "Invalid amount"
	msgInvalidCapacity = "Capacity must be a positive integer"
	msgInvalidWeekday  = "Invalid day of week"
)

// Validation is the outcome of validating a table.
type Validation struct {
	Total   int
	Records []Record
	Errors  []RowError
}

// Validator checks raw records against one schema.
type Validator struct {
	schema Schema
	now    time.Time
}

// NewValidator returns a validator for schema. now is used for date defaults.
func NewValidator(schema Schema, now time.Time) *Validator {
	return &Validator{schema: schema, now: now}
}

// Validate resolves headers once for the whole file, then validates each row.
// The only error it returns is a *SchemaError.
func (v *Validator) Validate(table *tabular.Table) (Validation, error) {
	idx := NewAliasIndex(table.Headers)

	headers := make(map[string]string, len(v.schema.Fields))
	var missing []string
	for _, f := range v.schema.Fields {
		h, ok := idx.ResolveAny(f.Candidates()...)
		if ok {
			headers[f.Name] = h
		} else if f.Required {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return Validation{}, &SchemaError{Kind: v.schema.Kind, Missing: missing}
	}

	out := Validation{Total: len(table.Records)}
	for i, raw := range table.Records {
		rec, msgs := v.validateRow(raw, headers)
		if len(msgs) == 0 {
			out.Records = append(out.Records, rec)
			continue
		}
		for _, m := range msgs {
			out.Errors = append(out.Errors, RowError{Row: i + 1, Message: m})
		}
	}
	return out, nil
}

func (v *Validator) validateRow(raw tabular.RawRecord, headers map[string]string) (Record, []string) {
	values := make(map[string]string, len(headers))
	for name, h := range headers {
		values[name] = CleanCell(raw.Get(h))
	}

	var msgs []string
	for _, f := range v.schema.Fields {
		if f.Required && values[f.Name] == "" {
			msgs = append(msgs, msgMissingRequired)
			break
		}
	}

	rec := make(Record, len(v.schema.Fields))
	for _, f := range v.schema.Fields {
		s := values[f.Name]
		if s == "" {
			if f.Default != nil {
				rec[f.Name] = f.Default.resolve(v.now)
			}
			continue
		}

		val, msg := convertField(f, s)
		if msg != "" {
			msgs = append(msgs, msg)
			continue
		}
		rec[f.Name] = val
	}

	return rec, msgs
}

// convertField converts one present value. It returns a user message when the
// value does not fit the field type.
func convertField(f FieldSpec, s string) (any, string) {
	switch f.Type {
	case FieldEmail:
		if e, ok := ParseEmail(s); ok {
			return e, ""
		}
		return nil, msgInvalidEmail
	case FieldNumber:
		if d, ok := ParseAmount(s); ok {
			return d, ""
		}
		return nil, msgInvalidAmount
	case FieldPositiveInt:
		if n, ok := ParseInt(s); ok && n > 0 {
			return n, ""
		}
		if f.Name == "capacity" {
			return nil, msgInvalidCapacity
		}
		return nil, "Invalid value for " + f.Name
	case FieldInt:
		if n, ok := ParseInt(s); ok && n >= 0 {
			return n, ""
		}
	case FieldWeekday:
		if d, ok := ParseWeekday(s); ok {
			return d, ""
		}
		return nil, msgInvalidWeekday
	case FieldDate:
		if t, ok := ParseDate(s); ok {
			return t, ""
		}
		return nil, "Invalid date for " + f.Name
	case FieldDateTime:
		if t, ok := ParseDateTime(s); ok {
			return t, ""
		}
		return nil, "Invalid date/time for " + f.Name
	case FieldTime:
		if c, ok := ParseClock(s); ok {
			return c, ""
		}
	case FieldBool:
		if b, ok := ParseBool(s); ok {
			return b, ""
		}
	case FieldMembership:
		return ParseMembershipType(s), ""
	default:
		return s, ""
	}
	return nil, "Invalid value for " + f.Name
}
