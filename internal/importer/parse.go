package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseRows reads an uploaded file into header-keyed rows. Files with a .csv
// extension are parsed as delimited text; anything else is opened as a
// workbook, first sheet only. The first row supplies the field names and
// missing cells default to the empty string.
func ParseRows(filename string, r io.Reader) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return parseCSV(r)
	}
	return parseWorkbook(r)
}

func parseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return tabulate(records, true), nil
}

func parseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tabulate(records, false), nil
}

// tabulate turns a header row plus data rows into Row maps. sanitize replaces
// invalid UTF-8 from mangled CSV exports; workbook cells are already valid.
func tabulate(records [][]string, sanitize bool) []Row {
	if len(records) == 0 {
		return nil
	}

	clean := func(s string) string { return s }
	if sanitize {
		clean = func(s string) string { return strings.ToValidUTF8(s, "?") }
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(clean(h))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = clean(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// skipBOM strips the UTF-8 byte order mark that Excel prepends to CSV exports.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}
