package dataset

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSVDetectsKinds(t *testing.T) {
	body := "Revenue,State,Sub-Category,Invoice_Date,Units\n" +
		"100.5,East,Chairs,2024-01-15,3\n" +
		"200,West,Tables,2024-02-10,4\n"
	raw, err := Load("orders.csv", strings.NewReader(body), Options{})
	require.NoError(t, err)

	assert.Equal(t, "orders.csv", raw.Name())
	assert.Equal(t, 2, raw.Len())
	assert.Equal(t, []string{"Revenue", "State", "Sub-Category", "Invoice_Date", "Units"}, raw.Columns())
	assert.Equal(t, []ColumnInfo{
		{Name: "Revenue", Kind: KindFloat},
		{Name: "State", Kind: KindString},
		{Name: "Sub-Category", Kind: KindString},
		{Name: "Invoice_Date", Kind: KindString},
		{Name: "Units", Kind: KindInt},
	}, raw.Schema())
	assert.True(t, raw.HasColumn("State"))
	assert.False(t, raw.HasColumn("state"))
}

func TestLoadTSVByExtension(t *testing.T) {
	raw, err := Load("orders.tsv", strings.NewReader("a\tb\n1\tx\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, raw.Columns())
}

func TestFromRecordsPadsAndTrims(t *testing.T) {
	raw, err := FromRecords("mem", [][]string{
		{" Sales ", "", "Region"},
		{"1", "x"},
		{"2", "y", "West", "extra"},
		{"", "", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "Unnamed: 1", "Region"}, raw.Columns())
	assert.Equal(t, 2, raw.Len())
}

func TestFromRecordsErrors(t *testing.T) {
	_, err := FromRecords("mem", nil)
	assert.True(t, errors.Is(err, ErrEmptyDataset))

	_, err = FromRecords("mem", [][]string{{"a", "b"}})
	assert.True(t, errors.Is(err, ErrEmptyDataset))

	_, err = FromRecords("mem", [][]string{{"a", "a"}, {"1", "2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate column name "a"`)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("notes.docx", strings.NewReader(""), Options{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestHeadAndFrameCopy(t *testing.T) {
	raw, err := FromRecords("mem", [][]string{{"a", "b"}, {"1", "x"}, {"2", "y"}, {"3", "z"}})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}}, raw.Head(2))
	assert.Len(t, raw.Head(10), 3)
	assert.Nil(t, raw.Head(0))

	df := raw.Frame()
	df = df.Rename("renamed", "a")
	require.NoError(t, df.Err)
	assert.Equal(t, []string{"a", "b"}, raw.Columns())
}

func TestLoadFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, os.WriteFile(path, buildXLSX(t), 0o644))

	raw, err := LoadFile(path, Options{SheetName: "Orders"})
	require.NoError(t, err)
	assert.Equal(t, "sales.xlsx", raw.Name())
	assert.Equal(t, []string{"Revenue", "State"}, raw.Columns())
	assert.Equal(t, [][]string{{"100", "East"}, {"250", "West"}}, raw.Head(5))
	assert.Equal(t, KindInt, raw.Schema()[0].Kind)

	byIndex, err := LoadFile(path, Options{SheetIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, raw.Columns(), byIndex.Columns())

	_, err = LoadFile(path, Options{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Orders")
}

func TestLoadXLSXInlineAndRichStrings(t *testing.T) {
	data := zipFiles(t, map[string]string{
		"xl/sharedStrings.xml": `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><r><t>Rev</t></r><r><rPr><b/></rPr><t>enue</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="C1" t="inlineStr"><is><t>Region</t></is></c></row>
<row r="2"><c r="A2"><v>7.5</v></c><c r="B2"><v>1</v></c><c r="C2" t="inlineStr"><is><t>North</t></is></c></row>
</sheetData></worksheet>`,
	})

	records, err := readXLSXRecords("book.xlsx", data, "", 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Revenue", "", "Region"}, {"7.5", "1", "North"}}, records)

	_, err = readXLSXRecords("book.xlsx", data, "", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xl/worksheets/sheet2.xml")
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeRelPath(tt.input), tt.input)
	}
}

func TestColIndexFromRef(t *testing.T) {
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 27, colIndexFromRef("AB3"))
	assert.Equal(t, -1, colIndexFromRef(""))
}

// buildXLSX writes a minimal single-sheet workbook using shared strings for text cells.
func buildXLSX(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Orders" sheetId="1" r:id="rId1"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/sheet1.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>Revenue</t></si><si><t>State</t></si><si><t>East</t></si><si><t>West</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2"><v>100</v></c><c r="B2" t="s"><v>2</v></c></row>
<row r="3"><c r="A3"><v>250</v></c><c r="B3" t="s"><v>3</v></c></row>
</sheetData></worksheet>`,
	}
	return zipFiles(t, files)
}

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
