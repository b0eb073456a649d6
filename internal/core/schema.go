package core

import (
	"fmt"
	"time"
)

// FieldType selects the validator and converter applied to a field.
type FieldType int

const (
	FieldText        FieldType = iota
	FieldEmail                 // lowercased, must look like local@domain.tld
	FieldNumber                // decimal amount
	FieldInt                   // integer, zero or more
	FieldPositiveInt           // integer greater than zero
	FieldWeekday               // monday..sunday, stored lowercase
	FieldDate                  // calendar date
	FieldDateTime              // date and time of day
	FieldTime                  // time of day, stored as HH:MM
	FieldBool                  // yes/no variants
	FieldMembership            // known plan or custom label
)

// String returns a human-readable name for a field type.
func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldEmail:
		return "email"
	case FieldNumber:
		return "number"
	case FieldInt:
		return "integer"
	case FieldPositiveInt:
		return "positive integer"
	case FieldWeekday:
		return "day of week"
	case FieldDate:
		return "date"
	case FieldDateTime:
		return "date/time"
	case FieldTime:
		return "time"
	case FieldBool:
		return "yes/no"
	case FieldMembership:
		return "membership type"
	default:
		return "value"
	}
}

// Default is the value an optional field takes when a row leaves it empty.
type Default struct {
	Value any
	Today bool // use the import date instead of Value
}

// DefaultTo returns a constant default.
func DefaultTo(v any) *Default { return &Default{Value: v} }

// DefaultToday defaults a date field to the day of the import.
func DefaultToday() *Default { return &Default{Today: true} }

func (d *Default) resolve(now time.Time) any {
	if d.Today {
		y, m, day := now.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	}
	return d.Value
}

// FieldSpec declares one canonical field of a kind.
type FieldSpec struct {
	Name     string    // canonical snake_case name, also the store column
	Label    string    // export column title, e.g. "First Name"
	Aliases  []string  // extra accepted header spellings
	Type     FieldType
	Required bool      // header must resolve and every row needs a value
	Default  *Default  // optional fields only
	Example  string    // sample value used by templates
	Values   []string  // documented values for the field reference
}

// Candidates lists the header spellings tried for the field, in order.
func (f FieldSpec) Candidates() []string {
	out := make([]string, 0, len(f.Aliases)+2)
	out = append(out, f.Name)
	if f.Label != "" {
		out = append(out, f.Label)
	}
	return append(out, f.Aliases...)
}

// Schema is the immutable declaration of one kind. Validators receive it by
// value, so pipelines for different kinds share no mutable state.
type Schema struct {
	Kind       Kind
	Label      string // sheet title, e.g. "Members"
	Fields     []FieldSpec
	NaturalKey string // upsert conflict column
	DateField  string // column filtered by export date ranges, "" for none
}

// Field looks up a field by canonical name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Required returns the required fields in declaration order.
func (s Schema) Required() []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Columns returns the canonical field names in declaration order.
func (s Schema) Columns() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Labels returns the export column titles in declaration order.
func (s Schema) Labels() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		if f.Label != "" {
			out[i] = f.Label
		} else {
			out[i] = f.Name
		}
	}
	return out
}

// check reports declaration mistakes that would break validation or storage.
func (s Schema) check() error {
	if s.Kind == "" {
		return fmt.Errorf("schema has no kind")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field without name", s.Kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", s.Kind, f.Name)
		}
		seen[f.Name] = true
		if f.Required && f.Default != nil {
			return fmt.Errorf("%s: required field %q has a default", s.Kind, f.Name)
		}
	}
	if !seen["id"] {
		return fmt.Errorf("%s: schema must declare an id field", s.Kind)
	}
	if !seen[s.NaturalKey] {
		return fmt.Errorf("%s: natural key %q is not a field", s.Kind, s.NaturalKey)
	}
	if s.DateField != "" && !seen[s.DateField] {
		return fmt.Errorf("%s: date field %q is not a field", s.Kind, s.DateField)
	}
	return nil
}
