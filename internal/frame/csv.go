package frame

// csv.go - CSV and XLSX table IO

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadCSV reads a headered CSV into a frame. Column kinds come from
// kinds; columns not listed default to String. Empty cells are null.
func ReadCSV(r io.Reader, kinds map[string]Kind) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make([]*Column, len(header))
	for i, name := range header {
		kind := String
		if k, ok := kinds[name]; ok {
			kind = k
		}
		cols[i] = &Column{Name: name, Kind: kind}
	}

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		for i, c := range cols {
			var raw string
			if i < len(record) {
				raw = record[i]
			}
			if strings.TrimSpace(raw) == "" {
				c.AppendNull()
				continue
			}
			v, err := Parse(c.Kind, raw)
			if err != nil {
				return nil, fmt.Errorf("csv line %d, column %s: %w", line, c.Name, err)
			}
			if err := c.Append(v); err != nil {
				return nil, err
			}
		}
	}
	return New(cols...)
}

// ReadCSVFile reads a CSV file into a frame.
func ReadCSVFile(path string, kinds map[string]Kind) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fr, err := ReadCSV(f, kinds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

// ReadXLSXFile reads one sheet of a workbook into a frame. An empty
// sheet name selects the first sheet. The first row is the header.
func ReadXLSXFile(path, sheet string, kinds map[string]Kind) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: sheet %q: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %q is empty", path, sheet)
	}

	cols := make([]*Column, len(rows[0]))
	for i, name := range rows[0] {
		kind := String
		if k, ok := kinds[name]; ok {
			kind = k
		}
		cols[i] = &Column{Name: name, Kind: kind}
	}
	for rn, row := range rows[1:] {
		for i, c := range cols {
			var raw string
			if i < len(row) {
				raw = row[i]
			}
			if strings.TrimSpace(raw) == "" {
				c.AppendNull()
				continue
			}
			v, err := Parse(c.Kind, raw)
			if err != nil {
				return nil, fmt.Errorf("%s: sheet %q row %d, column %s: %w", path, sheet, rn+2, c.Name, err)
			}
			if err := c.Append(v); err != nil {
				return nil, err
			}
		}
	}
	return New(cols...)
}

// ReadTable reads a CSV or XLSX file by extension. XLSX files read
// their first sheet.
func ReadTable(path string, kinds map[string]Kind) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXFile(path, "", kinds)
	default:
		return ReadCSVFile(path, kinds)
	}
}

// WriteCSV writes the frame as headered CSV. Nulls render as empty
// cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}
	record := make([]string, len(f.cols))
	for row := 0; row < f.Len(); row++ {
		for i, c := range f.cols {
			record[i] = FormatValue(c.data[row])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the frame to a CSV file, creating parent
// directories as needed.
func (f *Frame) WriteCSVFile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.WriteCSV(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
