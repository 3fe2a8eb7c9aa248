// Package importer implements the spreadsheet import and export pipelines:
// parsing uploaded files, normalizing heterogeneous dates and bilingual
// headers into canonical registration records, and batch persistence.
package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpochOffset is the day count between the workbook serial-date epoch
// (day 0 = 1899-12-30) and the Unix epoch.
const serialEpochOffset = 25569

// maxSerialDay corresponds to 9999-12-31, the largest serial a workbook can hold.
const maxSerialDay = 2958465

var (
	ymdPattern    = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	dmyPattern    = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{2}|\d{4})$`)
	serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// NormalizeDate converts a heterogeneous date value into a canonical
// YYYY-MM-DD string, or nil when it cannot be interpreted as a date.
//
// Accepted inputs, in order: native date values, workbook serial day counts
// (numbers, or digit-only strings as workbook cells arrive as text),
// YYYY-M-D strings, and D-M-Y strings with either / or - separators.
// Two-digit years map to 1970-1999 when >= 70, else 2000-2069.
func NormalizeDate(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		s := t.Format("2006-01-02")
		return &s
	case float64:
		return fromSerial(t)
	case int:
		return fromSerial(float64(t))
	case int64:
		return fromSerial(float64(t))
	case string:
		return normalizeDateString(t)
	default:
		return nil
	}
}

func normalizeDateString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		return canonDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			if year >= 70 {
				year += 1900
			} else {
				year += 2000
			}
		}
		return canonDate(year, atoi(m[2]), atoi(m[1]))
	}

	// Date-typed workbook cells come through as bare serial numbers.
	if serialPattern.MatchString(s) {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(serial)
		}
	}

	return nil
}

// fromSerial converts a workbook serial day count to a calendar date.
func fromSerial(serial float64) *string {
	if serial < 1 || serial > maxSerialDay {
		return nil
	}
	days := int64(serial)
	t := time.Unix((days-serialEpochOffset)*86400, 0).UTC()
	s := t.Format("2006-01-02")
	return &s
}

// canonDate zero-pads a year/month/day triple, rejecting impossible dates.
func canonDate(year, month, day int) *string {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	s := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	return &s
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
