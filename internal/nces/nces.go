// Package nces loads National Center for Education Statistics reference
// tables and joins them into mapped state data: school/district
// crosswalk rosters, curated name-to-ID lookups, and metadata columns
// (district type, school type, charter status).
package nces

import (
	"fmt"
	"strings"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Crosswalk column sets. All NCES IDs stay strings to preserve leading
// zeros.
var (
	schoolKinds = map[string]frame.Kind{
		"state":         frame.String,
		"district_name": frame.String,
		"state_leaid":   frame.String,
		"leaid":         frame.String,
		"sch_name":      frame.String,
		"ncessch":       frame.String,
		"state_schid":   frame.String,
	}
	districtKinds = map[string]frame.Kind{
		"state":         frame.String,
		"district_name": frame.String,
		"state_leaid":   frame.String,
		"leaid":         frame.String,
	}
)

// Roster columns carried into mapped output by crosswalk joins.
var (
	SchoolRosterColumns   = []string{"sch_name", "ncessch", "state_schid"}
	DistrictRosterColumns = []string{"district_name", "state_leaid", "leaid"}
)

// ID widths used throughout NCES data.
const (
	DistrictIDLen = 7
	SchoolIDLen   = 12
)

// LoadSchools reads the NCES school crosswalk (CSV or XLSX).
func LoadSchools(path string) (*frame.Frame, error) {
	f, err := frame.ReadTable(path, schoolKinds)
	if err != nil {
		return nil, fmt.Errorf("load NCES schools: %w", err)
	}
	if !f.HasColumn("state") || !f.HasColumn("sch_name") {
		return nil, fmt.Errorf("load NCES schools %s: missing state or sch_name column", path)
	}
	return f, nil
}

// LoadDistricts reads the NCES district crosswalk (CSV or XLSX).
func LoadDistricts(path string) (*frame.Frame, error) {
	f, err := frame.ReadTable(path, districtKinds)
	if err != nil {
		return nil, fmt.Errorf("load NCES districts: %w", err)
	}
	if !f.HasColumn("state") || !f.HasColumn("district_name") {
		return nil, fmt.Errorf("load NCES districts %s: missing state or district_name column", path)
	}
	return f, nil
}

// FilterState narrows a crosswalk to one state's rows by abbreviation.
func FilterState(f *frame.Frame, abbreviation string) (*frame.Frame, error) {
	col, ok := f.Column("state")
	if !ok {
		return nil, fmt.Errorf("filter state: no state column")
	}
	want := strings.ToUpper(strings.TrimSpace(abbreviation))
	return f.Filter(func(row int) bool {
		v, ok := col.Value(row)
		if !ok {
			return false
		}
		return strings.ToUpper(strings.TrimSpace(v.(string))) == want
	}), nil
}

// Zfill left-pads an ID with zeros to the NCES width.
func Zfill(id string, width int) string {
	id = strings.TrimSpace(id)
	if len(id) >= width {
		return id
	}
	return strings.Repeat("0", width-len(id)) + id
}

// MultiLookup resolves a possibly comma-separated key against a lookup
// table. Each element maps independently; identical results collapse to
// a single value, distinct results come back comma-joined. A key whose
// elements all miss resolves to the empty string.
func MultiLookup(lookup map[string]string, key string) string {
	keys := strings.Split(key, ",")
	var values []string
	distinct := make(map[string]struct{})
	for _, k := range keys {
		if v, ok := lookup[k]; ok {
			values = append(values, v)
			distinct[v] = struct{}{}
		}
	}
	if len(distinct) == 1 {
		return values[0]
	}
	return strings.Join(values, ",")
}

// buildLookup collects a key→value map from two string columns,
// skipping rows where either side is null. Keys are zero-filled to
// width when width > 0.
func buildLookup(f *frame.Frame, keyCol, valCol string, width int) (map[string]string, error) {
	kc, ok := f.Column(keyCol)
	if !ok {
		return nil, fmt.Errorf("lookup: no column %q", keyCol)
	}
	vc, ok := f.Column(valCol)
	if !ok {
		return nil, fmt.Errorf("lookup: no column %q", valCol)
	}
	out := make(map[string]string)
	for row := 0; row < f.Len(); row++ {
		k, kok := kc.Value(row)
		v, vok := vc.Value(row)
		if !kok || !vok {
			continue
		}
		key := frame.FormatValue(k)
		if width > 0 {
			key = Zfill(numericText(key), width)
		}
		out[key] = frame.FormatValue(v)
	}
	return out, nil
}

// numericText strips a float rendering ("8001.0") down to integer text
// so zero-filling lines up with NCES IDs.
func numericText(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") == "" {
			return s[:i]
		}
	}
	return s
}

// mapColumn adds (or overwrites) a string column derived by applying a
// multi-lookup over the source ID column.
func mapColumn(f *frame.Frame, srcCol, dstCol string, lookup map[string]string) error {
	src, ok := f.Column(srcCol)
	if !ok {
		return fmt.Errorf("no column %q", srcCol)
	}
	dst, ok := f.Column(dstCol)
	if !ok {
		dst = frame.NewColumn(dstCol, frame.String, f.Len())
		if err := f.AddColumn(dst); err != nil {
			return err
		}
	}
	for row := 0; row < f.Len(); row++ {
		v, vok := src.Value(row)
		if !vok {
			if err := dst.Set(row, nil); err != nil {
				return err
			}
			continue
		}
		if err := dst.Set(row, MultiLookup(lookup, frame.FormatValue(v))); err != nil {
			return err
		}
	}
	return nil
}
