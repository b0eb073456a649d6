package tabular

import "fmt"

type options struct {
	recordPath string
}

// Option configures Parse.
type Option func(*options)

// WithRecordPath selects the records of a JSON document with a JSONPath
// expression such as "$.members". It has no effect on CSV or XLSX input.
func WithRecordPath(path string) Option {
	return func(o *options) {
		o.recordPath = path
	}
}

// Parse decodes raw bytes in the declared format into a table of raw records.
// Any failure is returned as a *FormatError and no partial table is produced.
func Parse(data []byte, format Format, opts ...Option) (*Table, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatXLSX:
		return parseXLSX(data)
	case FormatJSON:
		return parseJSON(data, o)
	default:
		return nil, &FormatError{Format: format, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)}
	}
}
