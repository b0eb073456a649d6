package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// EncodeCSV writes a sheet as delimited text. Values containing a comma,
// quote or newline are quoted with internal quotes doubled.
func EncodeCSV(s Sheet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(s.Headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range s.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeWorkbook writes one worksheet per sheet into a single workbook.
func EncodeWorkbook(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, errors.New("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		name := sheetTitle(s)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}

		for col, h := range s.Headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(name, cell, h); err != nil {
				return nil, fmt.Errorf("sheet %q header: %w", name, err)
			}
		}
		for r, row := range s.Rows {
			for col, v := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				if err := f.SetCellValue(name, cell, v); err != nil {
					return nil, fmt.Errorf("sheet %q row %d: %w", name, r+1, err)
				}
			}
		}
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Worksheet titles are limited to 31 characters.
func sheetTitle(s Sheet) string {
	name := s.Name
	if name == "" {
		name = s.Key
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// EncodeJSON writes a sheet as a pretty-printed list of objects whose keys
// keep the header order.
func EncodeJSON(s Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeObjects(&buf, s); err != nil {
		return nil, err
	}
	return indent(buf.Bytes())
}

// EncodeJSONBundle writes several sheets as one object keyed by sheet key.
func EncodeJSONBundle(sheets []Sheet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range sheets {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, s.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeObjects(&buf, s); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return indent(buf.Bytes())
}

func writeObjects(buf *bytes.Buffer, s Sheet) error {
	buf.WriteByte('[')
	for i, row := range s.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for col, h := range s.Headers {
			if col > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, h); err != nil {
				return err
			}
			buf.WriteByte(':')
			v := ""
			if col < len(row) {
				v = row[col]
			}
			if err := writeString(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode json string: %w", err)
	}
	buf.Write(b)
	return nil
}

func indent(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
