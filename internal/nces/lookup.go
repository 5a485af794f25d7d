package nces

// lookup.go - curated name-to-NCES-ID lookup files. These are
// hand-reviewed CSVs produced from fuzzy match output: each file has a
// name column, an ID column, and either an is_match column (rows marked
// "drop" are discarded) or a drop column ("keep"/"drop" dispositions).

import (
	"fmt"
	"strings"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Lookup holds curated name→ID mappings plus names to drop entirely.
type Lookup struct {
	IDs   map[string]string
	Drops map[string]struct{}
}

// ReadSchoolLookups reads curated school lookup files (SchoolName →
// ncessch, 12-digit IDs).
func ReadSchoolLookups(paths []string) (*Lookup, error) {
	return readLookups(paths, ColSchoolName, "ncessch", SchoolIDLen)
}

// ReadDistrictLookups reads curated district lookup files
// (DistrictName → leaid, 7-digit IDs).
func ReadDistrictLookups(paths []string) (*Lookup, error) {
	return readLookups(paths, ColDistrictName, "leaid", DistrictIDLen)
}

func readLookups(paths []string, nameCol, idCol string, width int) (*Lookup, error) {
	lk := &Lookup{
		IDs:   make(map[string]string),
		Drops: make(map[string]struct{}),
	}
	for _, path := range paths {
		f, err := frame.ReadCSVFile(path, nil)
		if err != nil {
			return nil, fmt.Errorf("read lookup %s: %w", path, err)
		}
		switch {
		case f.HasColumn("is_match"):
			if err := lk.collect(f, nameCol, idCol, width, nil); err != nil {
				return nil, fmt.Errorf("lookup %s: %w", path, err)
			}
			lk.collectDrops(f, nameCol, "is_match")
		case f.HasColumn("drop"):
			keep := func(row int) bool { return disposition(f, "drop", row) == "keep" }
			if err := lk.collect(f, nameCol, idCol, width, keep); err != nil {
				return nil, fmt.Errorf("lookup %s: %w", path, err)
			}
			lk.collectDrops(f, nameCol, "drop")
		default:
			return nil, fmt.Errorf("lookup %s: no is_match or drop column", path)
		}
	}
	return lk, nil
}

func disposition(f *frame.Frame, col string, row int) string {
	c, ok := f.Column(col)
	if !ok {
		return ""
	}
	v, vok := c.Value(row)
	if !vok {
		return ""
	}
	return strings.TrimSpace(frame.FormatValue(v))
}

// collect gathers name→ID pairs where both cells are present, filtered
// by keep (nil keeps everything). IDs may be comma-separated; each
// element is zero-filled.
func (lk *Lookup) collect(f *frame.Frame, nameCol, idCol string, width int, keep func(int) bool) error {
	names, ok := f.Column(nameCol)
	if !ok {
		return fmt.Errorf("no column %q", nameCol)
	}
	ids, ok := f.Column(idCol)
	if !ok {
		return fmt.Errorf("no column %q", idCol)
	}
	for row := 0; row < f.Len(); row++ {
		if keep != nil && !keep(row) {
			continue
		}
		n, nok := names.Value(row)
		id, idok := ids.Value(row)
		if !nok || !idok {
			continue
		}
		lk.IDs[frame.FormatValue(n)] = fixedLengthCodes(frame.FormatValue(id), width)
	}
	return nil
}

// collectDrops records names whose disposition is "drop".
func (lk *Lookup) collectDrops(f *frame.Frame, nameCol, dispCol string) {
	names, ok := f.Column(nameCol)
	if !ok {
		return
	}
	for row := 0; row < f.Len(); row++ {
		if disposition(f, dispCol, row) != "drop" {
			continue
		}
		if v, vok := names.Value(row); vok {
			lk.Drops[frame.FormatValue(v)] = struct{}{}
		}
	}
}

// fixedLengthCodes zero-fills each element of a comma-separated code
// list.
func fixedLengthCodes(codes string, width int) string {
	parts := strings.Split(codes, ",")
	for i, p := range parts {
		parts[i] = Zfill(numericText(strings.TrimSpace(p)), width)
	}
	return strings.Join(parts, ",")
}

// ApplySchoolLookup maps SchoolName to NCESSchoolID, infers
// NCESDistrictID from the school ID, and drops rows whose school name
// is in the drop set.
func ApplySchoolLookup(caseData *frame.Frame, lk *Lookup) (*frame.Frame, error) {
	if err := simpleMap(caseData, ColSchoolName, ColNCESSchoolID, lk.IDs); err != nil {
		return nil, err
	}
	ids, _ := caseData.Column(ColNCESSchoolID)
	districts := frame.NewColumn(ColNCESDistrictID, frame.String, caseData.Len())
	for row := 0; row < caseData.Len(); row++ {
		v, ok := ids.Value(row)
		if !ok {
			continue
		}
		if d := DistrictIDFromSchoolIDs(frame.FormatValue(v)); d != "" {
			if err := districts.Set(row, d); err != nil {
				return nil, err
			}
		}
	}
	if caseData.HasColumn(ColNCESDistrictID) {
		existing, _ := caseData.Column(ColNCESDistrictID)
		for row := 0; row < caseData.Len(); row++ {
			v, ok := districts.Value(row)
			if !ok {
				v = nil
			}
			if err := existing.Set(row, v); err != nil {
				return nil, err
			}
		}
	} else if err := caseData.AddColumn(districts); err != nil {
		return nil, err
	}
	return dropNames(caseData, ColSchoolName, lk.Drops), nil
}

// ApplyDistrictLookup maps DistrictName to NCESDistrictID and drops
// rows whose district name is in the drop set.
func ApplyDistrictLookup(caseData *frame.Frame, lk *Lookup) (*frame.Frame, error) {
	if err := simpleMap(caseData, ColDistrictName, ColNCESDistrictID, lk.IDs); err != nil {
		return nil, err
	}
	return dropNames(caseData, ColDistrictName, lk.Drops), nil
}

// DistrictIDFromSchoolIDs derives the 7-digit district ID by stripping
// the school suffix from each 12-digit school ID. Identical inferred
// IDs collapse to one.
func DistrictIDFromSchoolIDs(schoolIDs string) string {
	parts := strings.Split(schoolIDs, ",")
	var out []string
	distinct := make(map[string]struct{})
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) <= 5 {
			continue
		}
		d := p[:len(p)-5]
		out = append(out, d)
		distinct[d] = struct{}{}
	}
	if len(out) == 0 {
		return ""
	}
	if len(distinct) == 1 {
		return out[0]
	}
	return strings.Join(out, ",")
}

// simpleMap sets dstCol from an exact-name lookup (no multi-key
// splitting; names contain commas).
func simpleMap(f *frame.Frame, srcCol, dstCol string, lookup map[string]string) error {
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
			continue
		}
		if id, hit := lookup[frame.FormatValue(v)]; hit {
			if err := dst.Set(row, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func dropNames(f *frame.Frame, nameCol string, drops map[string]struct{}) *frame.Frame {
	if len(drops) == 0 {
		return f
	}
	names, ok := f.Column(nameCol)
	if !ok {
		return f
	}
	return f.Filter(func(row int) bool {
		v, vok := names.Value(row)
		if !vok {
			return true
		}
		_, dropped := drops[frame.FormatValue(v)]
		return !dropped
	})
}
