package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/roster/internal/tabular"
)

// ExportRequest describes one export.
type ExportRequest struct {
	Format   tabular.Format
	Target   string     // a kind name or "all"
	Range    *DateRange // applied to kinds with a date field
	FileName string     // base name without extension; defaults to the target
}

// ExportRow is one stored record rendered for people. Values line up with
// Schema.Labels().
type ExportRow []string

// FormatRecord renders rec in the schema's column order.
func FormatRecord(schema Schema, rec Record) ExportRow {
	row := make(ExportRow, len(schema.Fields))
	for i, f := range schema.Fields {
		row[i] = FormatValue(f.Type, rec[f.Name])
	}
	return row
}

// Export fetches the requested kinds and serializes them. CSV exports of
// "all" produce one blob per kind; every other combination produces one blob.
func (s *Service) Export(ctx context.Context, req ExportRequest) ([]Blob, error) {
	kinds, err := s.exportKinds(req.Target)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSpace(req.FileName)
	if base == "" {
		base = strings.ToLower(strings.TrimSpace(req.Target))
	}

	sheets := make([]tabular.Sheet, 0, len(kinds))
	for _, kind := range kinds {
		sheet, err := s.fetchSheet(ctx, kind, req.Range)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}

	blobs, err := encodeSheets(sheets, req.Format, base, len(kinds) > 1)
	if err != nil {
		return nil, err
	}

	s.metrics.recordExport(ctx, req.Target, string(req.Format))
	s.logger.Info("export finished",
		"target", req.Target,
		"format", req.Format,
		"files", len(blobs),
	)
	return blobs, nil
}

func (s *Service) exportKinds(target string) ([]Kind, error) {
	if strings.EqualFold(strings.TrimSpace(target), TargetAll) {
		return s.catalog.Kinds(), nil
	}
	kind, err := ParseKind(target)
	if err != nil {
		return nil, err
	}
	if _, ok := s.catalog.Get(kind); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, target)
	}
	return []Kind{kind}, nil
}

// fetchSheet queries one kind and formats its rows. Kinds without a date
// field ignore the range.
func (s *Service) fetchSheet(ctx context.Context, kind Kind, r *DateRange) (tabular.Sheet, error) {
	schema, _ := s.catalog.Get(kind)

	var filter Filter
	if r != nil && schema.DateField != "" {
		filter.DateColumn = schema.DateField
		filter.From, filter.Until = r.Window()
	}

	records, err := s.store.Select(ctx, kind, filter)
	if err != nil {
		return tabular.Sheet{}, fmt.Errorf("fetch %s: %w", kind, err)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = FormatRecord(schema, rec)
	}

	return tabular.Sheet{
		Key:     string(kind),
		Name:    schema.Label,
		Headers: schema.Labels(),
		Rows:    rows,
	}, nil
}

func encodeSheets(sheets []tabular.Sheet, format tabular.Format, base string, bundle bool) ([]Blob, error) {
	switch format {
	case tabular.FormatCSV:
		blobs := make([]Blob, 0, len(sheets))
		for _, sh := range sheets {
			data, err := tabular.EncodeCSV(sh)
			if err != nil {
				return nil, err
			}
			name := base + format.Extension()
			if bundle {
				name = base + "_" + sh.Key + format.Extension()
			}
			blobs = append(blobs, Blob{Name: name, ContentType: format.ContentType(), Data: data})
		}
		return blobs, nil

	case tabular.FormatXLSX:
		data, err := tabular.EncodeWorkbook(sheets)
		if err != nil {
			return nil, err
		}
		return []Blob{{Name: base + format.Extension(), ContentType: format.ContentType(), Data: data}}, nil

	case tabular.FormatJSON:
		var (
			data []byte
			err  error
		)
		if bundle {
			data, err = tabular.EncodeJSONBundle(sheets)
		} else {
			data, err = tabular.EncodeJSON(sheets[0])
		}
		if err != nil {
			return nil, err
		}
		return []Blob{{Name: base + format.Extension(), ContentType: format.ContentType(), Data: data}}, nil
	}

	return nil, &tabular.FormatError{Format: format, Err: fmt.Errorf("%w: %q", tabular.ErrUnsupportedFormat, format)}
}
