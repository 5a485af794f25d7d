// Package mapper reads per-state school data workbooks and produces
// normalized CSVs following a declarative column-mapping config:
// column selection, renaming, dtype casts, converters, constants, NCES
// crosswalk joins and metadata enrichment.
package mapper

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/nces"
)

// Options carries the shared inputs for processing states.
type Options struct {
	// DataDir anchors relative source and target paths.
	DataDir string
	// NCES crosswalks for roster joins (optional).
	Schools   *frame.Frame
	Districts *frame.Frame
	// NCES metadata tables for DistrictType/SchoolType/Charter
	// enrichment (optional).
	SchoolMetadata   *frame.Frame
	DistrictMetadata *frame.Frame
	// Columns every state's output must contain.
	RequiredColumns []string
	// Logger defaults to discard.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *Options) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || o.DataDir == "" {
		return path
	}
	return filepath.Join(o.DataDir, path)
}

// ProcessState reads one state's workbook, applies the column
// mappings, joins NCES data, validates required columns, and writes
// the target CSV. The processed frame is returned for reporting.
func ProcessState(cfg StateConfig, opts Options) (*frame.Frame, error) {
	log := opts.logger().With("state", cfg.State)
	source := opts.resolve(cfg.Source)
	log.Debug("reading state workbook", "source", source)

	df, err := readMapped(cfg, source)
	if err != nil {
		return nil, fmt.Errorf("state %s: %w", cfg.State, err)
	}
	log.Debug("mapped source columns", "rows", df.Len(), "columns", len(df.Columns()))

	if cfg.DistrictsJoin != nil && opts.Districts != nil {
		df, err = crosswalkJoin(df, opts.Districts, cfg.Abbreviation,
			nces.DistrictRosterColumns, cfg.DistrictsJoin)
		if err != nil {
			return nil, fmt.Errorf("state %s: district crosswalk: %w", cfg.State, err)
		}
	}
	if cfg.SchoolsJoin != nil && opts.Schools != nil {
		df, err = crosswalkJoin(df, opts.Schools, cfg.Abbreviation,
			nces.SchoolRosterColumns, cfg.SchoolsJoin)
		if err != nil {
			return nil, fmt.Errorf("state %s: school crosswalk: %w", cfg.State, err)
		}
	}

	if opts.SchoolMetadata != nil || opts.DistrictMetadata != nil {
		if df.HasColumn(nces.ColNCESSchoolID) || df.HasColumn(nces.ColNCESDistrictID) {
			if err := joinMetadata(df, opts); err != nil {
				return nil, fmt.Errorf("state %s: metadata join: %w", cfg.State, err)
			}
		} else {
			log.Debug("skipping metadata join: no NCES ID columns in output")
		}
	}

	if err := checkRequired(df, opts.RequiredColumns); err != nil {
		return nil, fmt.Errorf("state %s: %w", cfg.State, err)
	}

	if cfg.Target != "" {
		target := opts.resolve(cfg.Target)
		if err := df.WriteCSVFile(target); err != nil {
			return nil, fmt.Errorf("state %s: %w", cfg.State, err)
		}
		log.Debug("wrote target", "target", target, "rows", df.Len())
	}
	return df, nil
}

// readMapped reads the configured sheet(s) and builds the output
// columns in config order.
func readMapped(cfg StateConfig, source string) (*frame.Frame, error) {
	wb, err := excelize.OpenFile(source)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", source, err)
	}
	defer wb.Close()

	cols := make([]*frame.Column, len(cfg.Columns))
	for i := range cfg.Columns {
		kind, err := cfg.Columns[i].Kind()
		if err != nil {
			return nil, err
		}
		cols[i] = frame.NewColumn(cfg.Columns[i].Target, kind, 0)
	}

	for _, sheet := range cfg.SheetNames() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("sheet %q is empty", sheet)
		}
		if err := appendSheet(cols, cfg.Columns, sheet, rows); err != nil {
			return nil, err
		}
	}

	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	if err := fillConstants(df, cfg.Columns); err != nil {
		return nil, err
	}
	return df, nil
}

func appendSheet(cols []*frame.Column, mappings []ColumnMapping, sheet string, rows [][]string) error {
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}

	// Resolve source column positions up front so a missing column
	// fails before any cell work.
	srcIdx := make([]int, len(mappings))
	for i, m := range mappings {
		srcIdx[i] = -1
		if m.Source == "" {
			continue
		}
		idx, ok := header[m.Source]
		if !ok {
			return fmt.Errorf("sheet %q: no source column %q for target %s", sheet, m.Source, m.Target)
		}
		srcIdx[i] = idx
	}

	for rn, row := range rows[1:] {
		for i := range mappings {
			m := &mappings[i]
			if srcIdx[i] < 0 {
				cols[i].AppendNull() // constant or unsourced column, filled later
				continue
			}
			var raw string
			if srcIdx[i] < len(row) {
				raw = row[srcIdx[i]]
			}
			v, err := parseCell(m, cols[i].Kind, raw)
			if err != nil {
				return fmt.Errorf("sheet %q row %d, column %s: %w", sheet, rn+2, m.Target, err)
			}
			if err := cols[i].Append(v); err != nil {
				return fmt.Errorf("sheet %q row %d: %w", sheet, rn+2, err)
			}
		}
	}
	return nil
}

// parseCell applies na_values, then the converter or a dtype cast.
func parseCell(m *ColumnMapping, kind frame.Kind, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	for _, na := range m.NAValues {
		if trimmed == na {
			return nil, nil
		}
	}
	if m.Converter != "" {
		conv, err := LookupConverter(m.Converter)
		if err != nil {
			return nil, err
		}
		return conv(raw)
	}
	return frame.Parse(kind, raw)
}

func fillConstants(df *frame.Frame, mappings []ColumnMapping) error {
	for i := range mappings {
		m := &mappings[i]
		if m.Constant == nil {
			continue
		}
		col, _ := df.Column(m.Target)
		v, err := frame.Parse(col.Kind, *m.Constant)
		if err != nil {
			return fmt.Errorf("column %s: constant: %w", m.Target, err)
		}
		if err := col.Fill(v); err != nil {
			return err
		}
	}
	return nil
}

// crosswalkJoin filters the crosswalk to the state, projects the roster
// columns, and left-joins on the transformed keys.
func crosswalkJoin(df, crosswalk *frame.Frame, abbreviation string, roster []string, spec *JoinSpec) (*frame.Frame, error) {
	filtered, err := nces.FilterState(crosswalk, abbreviation)
	if err != nil {
		return nil, err
	}
	projected, err := filtered.Select(roster...)
	if err != nil {
		return nil, err
	}
	leftFn, err := LookupKeyTransform(spec.LeftTransform)
	if err != nil {
		return nil, err
	}
	rightFn, err := LookupKeyTransform(spec.RightTransform)
	if err != nil {
		return nil, err
	}
	return frame.LeftJoin(df, projected, spec.LeftOn, spec.RightOn, leftFn, rightFn)
}

func joinMetadata(df *frame.Frame, opts Options) error {
	if df.HasColumn(nces.ColNCESSchoolID) {
		return nces.JoinSchoolMetadata(df, opts.SchoolMetadata, opts.DistrictMetadata)
	}
	if opts.DistrictMetadata != nil {
		return nces.JoinDistrictMetadata(df, opts.DistrictMetadata)
	}
	return nil
}

func checkRequired(df *frame.Frame, required []string) error {
	var missing []string
	for _, name := range required {
		if !df.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("output is missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
