package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/roster/internal/tabular"
)

// Template builds a minimal example file for kind: the header row plus one
// example row. It needs no store access.
func (s *Service) Template(kind Kind, format tabular.Format) (Blob, error) {
	schema, ok := s.catalog.Get(kind)
	if !ok {
		return Blob{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	example := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		example[i] = f.Example
	}
	sheet := tabular.Sheet{
		Key:     string(kind),
		Name:    schema.Label,
		Headers: schema.Labels(),
		Rows:    [][]string{example},
	}

	blobs, err := encodeSheets([]tabular.Sheet{sheet}, format, string(kind)+"_template", false)
	if err != nil {
		return Blob{}, err
	}
	return blobs[0], nil
}

// FieldReference returns a plain-text description of the columns accepted
// for kind: required and optional fields, their aliases, accepted values,
// defaults and date formats.
func (s *Service) FieldReference(kind Kind) (string, error) {
	schema, ok := s.catalog.Get(kind)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s import reference\n", schema.Label)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", len(schema.Label)+17))
	b.WriteString("Headers are matched ignoring case, spaces, underscores, hyphens and accents.\n")
	fmt.Fprintf(&b, "Existing rows are matched on %q in merge mode.\n", schema.NaturalKey)

	section := func(title string, required bool) {
		fmt.Fprintf(&b, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
		for _, f := range schema.Fields {
			if f.Required != required {
				continue
			}
			fmt.Fprintf(&b, "  %s (%s)\n", f.Name, f.Type)
			fmt.Fprintf(&b, "      headers: %s\n", strings.Join(f.Candidates(), ", "))
			if len(f.Values) > 0 {
				fmt.Fprintf(&b, "      values: %s\n", strings.Join(f.Values, ", "))
			}
			if f.Default != nil {
				fmt.Fprintf(&b, "      default: %s\n", describeDefault(f))
			}
			if f.Example != "" {
				fmt.Fprintf(&b, "      example: %s\n", f.Example)
			}
		}
	}
	section("Required columns", true)
	section("Optional columns", false)

	b.WriteString("\nDates\n-----\n")
	b.WriteString("  dates:       2024-01-31, 01/31/2024, 31.01.2024, Jan 31, 2024, 31 Jan 2024\n")
	b.WriteString("               slashes and dashes are month first, dots are day first\n")
	b.WriteString("  date/times:  2024-01-31T08:30:00, 2024-01-31 08:30, 2024-01-31T08:30:00Z, 2024-01-31T08:30:00+01:00\n")
	b.WriteString("  times:       18:30, 6:30 PM\n")
	b.WriteString("  yes/no:      yes, no, true, false, 1, 0\n")
	b.WriteString("\nExports write dates as YYYY-MM-DD and date/times as YYYY-MM-DD HH:MM:SS.\n")

	return b.String(), nil
}

func describeDefault(f FieldSpec) string {
	if f.Default.Today {
		return "today"
	}
	return FormatValue(f.Type, f.Default.Value)
}
