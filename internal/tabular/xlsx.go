package tabular

import (
	"bytes"
	"errors"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first sheet of a workbook. The first non-empty row is
// the header; blank rows are skipped and short rows padded with "".
func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FormatError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &FormatError{Format: FormatXLSX, Err: err}
	}

	var (
		headers []string
		records []RawRecord
	)

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, cell := range row {
				headers[i] = strings.TrimSpace(cell)
			}
			continue
		}

		rec := NewRawRecord(len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec.Set(h, strings.TrimSpace(row[i]))
			} else {
				rec.Set(h, "")
			}
		}
		records = append(records, rec)
	}

	if headers == nil || len(records) == 0 {
		return nil, &FormatError{Format: FormatXLSX, Err: ErrNoRecords}
	}

	return &Table{Headers: headers, Records: records}, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
