package tabular

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEncodeCSV_Quoting(t *testing.T) {
	out, err := EncodeCSV(Sheet{
		Headers: []string{"Name", "Notes"},
		Rows: [][]string{
			{"Jean", "plain"},
			{"Ana", "a, b"},
			{"Luc", `say "hi"`},
			{"Zoe", "two\nlines"},
		},
	})
	require.NoError(t, err)

	want := "Name,Notes\n" +
		"Jean,plain\n" +
		"Ana,\"a, b\"\n" +
		"Luc,\"say \"\"hi\"\"\"\n" +
		"Zoe,\"two\nlines\"\n"
	assert.Equal(t, want, string(out))
}

func TestEncodeCSV_ParsesBack(t *testing.T) {
	sheet := Sheet{
		Headers: []string{"Name", "Notes"},
		Rows:    [][]string{{"Ana", `a, "b", c`}, {"Zoe", "two\nlines, here"}},
	}
	out, err := EncodeCSV(sheet)
	require.NoError(t, err)

	table, err := Parse(out, FormatCSV)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, `a, "b", c`, table.Records[0].Get("Notes"))
	assert.Equal(t, "two\nlines, here", table.Records[1].Get("Notes"))
}

func TestEncodeWorkbook_SheetPerEntry(t *testing.T) {
	sheets := []Sheet{
		{Key: "members", Name: "Members", Headers: []string{"ID", "Email"}},
		{Key: "payments", Name: "Payments", Headers: []string{"ID", "Amount"}, Rows: [][]string{{"p1", "10.00"}}},
		{Key: "attendance", Name: "Attendance", Headers: []string{"ID"}},
		{Key: "classes", Name: "Classes", Headers: []string{"ID", "Name"}},
	}
	data, err := EncodeWorkbook(sheets)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Members", "Payments", "Attendance", "Classes"}, f.GetSheetList())
	for _, s := range sheets {
		rows, err := f.GetRows(s.Name)
		require.NoError(t, err)
		require.NotEmpty(t, rows, s.Name)
		assert.Equal(t, s.Headers, rows[0], s.Name)
	}
}

func TestEncodeWorkbook_NoSheets(t *testing.T) {
	_, err := EncodeWorkbook(nil)
	assert.Error(t, err)
}

func TestEncodeJSON_KeepsHeaderOrder(t *testing.T) {
	out, err := EncodeJSON(Sheet{
		Headers: []string{"Last Name", "First Name"},
		Rows:    [][]string{{"Dupont", "Jean"}},
	})
	require.NoError(t, err)

	want := "[\n  {\n    \"Last Name\": \"Dupont\",\n    \"First Name\": \"Jean\"\n  }\n]\n"
	assert.Equal(t, want, string(out))
}

func TestEncodeJSONBundle(t *testing.T) {
	out, err := EncodeJSONBundle([]Sheet{
		{Key: "members", Headers: []string{"Email"}, Rows: [][]string{{"a@b.co"}}},
		{Key: "classes", Headers: []string{"Name"}},
	})
	require.NoError(t, err)

	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "a@b.co", decoded["members"][0]["Email"])
	assert.Empty(t, decoded["classes"])

	table, err := Parse(out, FormatJSON, WithRecordPath("$.members"))
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", table.Records[0].Get("Email"))
}
