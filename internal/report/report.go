// Package report builds and renders the per-column read report that
// summarizes every processed state output.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Row summarizes one output column of one state.
type Row struct {
	State  string `json:"state"`
	Column string `json:"column"`
	DType  string `json:"dtype"`
	Count  int    `json:"count"`
	Nulls  int    `json:"null_count"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Mean   string `json:"mean"`
	Mode   string `json:"mode"`
}

// Header is the report column order, matching the report CSV.
var Header = []string{"state", "column", "dtype", "count", "null_count", "min", "max", "mean", "mode"}

// ForState summarizes every column of a processed state frame.
func ForState(state string, f *frame.Frame) []Row {
	rows := make([]Row, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		col, _ := f.Column(name)
		s := frame.Summarize(col)
		row := Row{
			State:  state,
			Column: s.Column,
			DType:  s.Kind.String(),
			Count:  s.Count,
			Nulls:  s.Nulls,
			Min:    frame.FormatValue(s.Min),
			Max:    frame.FormatValue(s.Max),
			Mode:   frame.FormatValue(s.Mode),
		}
		if s.Mean != nil {
			row.Mean = strconv.FormatFloat(*s.Mean, 'g', -1, 64)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes report rows as headered CSV.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the report to a file, creating parent
// directories as needed.
func WriteCSVFile(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}

// Render writes the report in the requested format: table, csv,
// markdown or json.
func Render(w io.Writer, rows []Row, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		return WriteCSV(w, rows)
	case "md", "markdown":
		renderTable(w, rows, true)
		return nil
	default:
		renderTable(w, rows, false)
		return nil
	}
}

func renderTable(w io.Writer, rows []Row, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, r := range rows {
		record := r.record()
		row := make(table.Row, len(record))
		for i, v := range record {
			row[i] = v
		}
		t.AppendRow(row)
	}
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func (r Row) record() []string {
	return []string{
		r.State, r.Column, r.DType,
		strconv.Itoa(r.Count), strconv.Itoa(r.Nulls),
		r.Min, r.Max, r.Mean, r.Mode,
	}
}
