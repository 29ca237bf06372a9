package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RelID   string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// xlsxText covers both plain (<t>) and rich-text (<r><t>) string items.
type xlsxText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (x xlsxText) String() string {
	if len(x.Runs) == 0 {
		return x.T
	}
	var sb strings.Builder
	sb.WriteString(x.T)
	for _, r := range x.Runs {
		sb.WriteString(r.T)
	}
	return sb.String()
}

type xlsxSharedStrings struct {
	Items []xlsxText `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string   `xml:"r,attr"`
			Type   string   `xml:"t,attr"`
			Value  string   `xml:"v"`
			Inline xlsxText `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// readXLSXRecords extracts the rows of one worksheet as string records.
// SheetName wins over sheetIndex, which is 1-based; neither means the first sheet.
func readXLSXRecords(name string, data []byte, sheetName string, sheetIndex int) ([][]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	var wb xlsxWorkbook
	if err := unmarshalZipEntry(zr, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRelationships
	if err := unmarshalZipEntry(zr, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
	}

	if sheetIndex <= 0 {
		sheetIndex = 1
	}
	target := ""
	if sheetName != "" {
		available := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, sheetName) {
				target = targets[s.RelID]
			}
			available = append(available, s.Name)
		}
		if target == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, name, strings.Join(available, ", "))
		}
	} else {
		for _, s := range wb.Sheets {
			if s.SheetID == sheetIndex {
				target = targets[s.RelID]
			}
		}
		if target == "" {
			target = path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", sheetIndex))
		}
	}

	var sst xlsxSharedStrings
	if err := unmarshalZipEntry(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	var sheet xlsxSheet
	if !hasZipEntry(zr, target) {
		return nil, fmt.Errorf("worksheet %s missing from workbook '%s'", target, name)
	}
	if err := unmarshalZipEntry(zr, target, &sheet); err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		var rec []string
		for i, c := range row.Cells {
			col := colIndexFromRef(c.Ref)
			if col < 0 {
				col = i
			}
			for len(rec) <= col {
				rec = append(rec, "")
			}
			switch c.Type {
			case "s":
				if n, err := strconv.Atoi(strings.TrimSpace(c.Value)); err == nil && n >= 0 && n < len(sst.Items) {
					rec[col] = sst.Items[n].String()
				}
			case "inlineStr":
				rec[col] = c.Inline.String()
			default:
				rec[col] = c.Value
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func hasZipEntry(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// unmarshalZipEntry decodes the named part into v; a missing part leaves v untouched.
func unmarshalZipEntry(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := xml.Unmarshal(b, v); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return nil
}

// colIndexFromRef maps a cell reference like "C12" to a 0-based column; -1 without letters.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A') + 1
	}
	return idx - 1
}

// normalizeRelPath turns a relationship target into a zip entry name.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
