// Package tabular decodes raw file bytes into ordered header/value records and
// encodes flat sheets back into CSV, XLSX or JSON files.
//
// The package knows nothing about members, payments or any other entity kind.
// It only moves strings in and out of the three supported file formats.
package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies one of the supported file formats.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned when a format name or file extension is
// not one of csv, xlsx/xls or json.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoRecords is returned when a file decodes cleanly but holds no data rows.
var ErrNoRecords = errors.New("file contains no data rows")

// FormatError reports a file that could not be decoded. It is fatal to the
// whole import; no partial result is produced.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("invalid file: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s file: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseFormat accepts the user-facing format names, including the long forms
// used by the export surface.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "delimited-text", "text/csv":
		return FormatCSV, nil
	case "xlsx", "xls", "excel", "spreadsheet", "spreadsheet-workbook":
		return FormatXLSX, nil
	case "json", "structured-object-notation", "application/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromFileName infers the format from the file extension. Content is
// never sniffed.
func FormatFromFileName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", &FormatError{Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)}
}

// Extension returns the file extension written for the format.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
