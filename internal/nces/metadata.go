package nces

// metadata.go - joining NCES metadata (DistrictType, SchoolType,
// Charter) and demographic tables into mapped case data.

import (
	"fmt"
	"strings"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Metadata column names on both the metadata tables and the mapped
// output.
const (
	ColNCESSchoolID   = "NCESSchoolID"
	ColNCESDistrictID = "NCESDistrictID"
	ColDistrictName   = "DistrictName"
	ColSchoolName     = "SchoolName"
	ColDistrictType   = "DistrictType"
	ColSchoolType     = "SchoolType"
	ColCharter        = "Charter"
)

// LoadMetadata reads an NCES metadata spreadsheet (CSV or XLSX) as an
// all-string table.
func LoadMetadata(path string) (*frame.Frame, error) {
	f, err := frame.ReadTable(path, nil)
	if err != nil {
		return nil, fmt.Errorf("load NCES metadata: %w", err)
	}
	return f, nil
}

// JoinSchoolMetadata adds DistrictType, Charter and SchoolType to
// school-level case data, keyed by the NCES ID columns. Either metadata
// table may be nil; the columns it feeds are then skipped.
func JoinSchoolMetadata(caseData, schoolMeta, districtMeta *frame.Frame) error {
	if districtMeta != nil {
		lookup, err := buildLookup(districtMeta, ColNCESDistrictID, ColDistrictType, 0)
		if err != nil {
			return fmt.Errorf("district metadata: %w", err)
		}
		if err := mapColumn(caseData, ColNCESDistrictID, ColDistrictType, lookup); err != nil {
			return fmt.Errorf("join %s: %w", ColDistrictType, err)
		}
	}
	if schoolMeta != nil {
		for _, col := range []string{ColCharter, ColSchoolType} {
			lookup, err := buildLookup(schoolMeta, ColNCESSchoolID, col, 0)
			if err != nil {
				return fmt.Errorf("school metadata: %w", err)
			}
			if err := mapColumn(caseData, ColNCESSchoolID, col, lookup); err != nil {
				return fmt.Errorf("join %s: %w", col, err)
			}
		}
	}
	return nil
}

// JoinDistrictMetadata adds DistrictType and Charter to district-level
// case data.
func JoinDistrictMetadata(caseData, districtMeta *frame.Frame) error {
	for _, col := range []string{ColDistrictType, ColCharter} {
		lookup, err := buildLookup(districtMeta, ColNCESDistrictID, col, 0)
		if err != nil {
			return fmt.Errorf("district metadata: %w", err)
		}
		if err := mapColumn(caseData, ColNCESDistrictID, col, lookup); err != nil {
			return fmt.Errorf("join %s: %w", col, err)
		}
	}
	return nil
}

// NormalizeCharter maps the NCES charter flag onto Yes/No:
// "Not applicable" counts as No, and the first letter is capitalized.
func NormalizeCharter(v string) string {
	if v == "Not applicable" {
		return "No"
	}
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// Demographics column names in the NCES CCD extracts.
const (
	demoLEAName    = "lea_name"
	demoLEAID      = "leaid"
	demoAgencyType = "agency_type"
	demoCharter    = "charter"
	demoSchoolType = "school_type"
	demoNCESSchNum = "ncessch_num"
)

// JoinSchoolDemographics enriches school-level case data from the NCES
// demographics extracts: DistrictType and DistrictName come from the
// district table (DistrictName only where missing), Charter and
// SchoolType from the school table.
func JoinSchoolDemographics(caseData, schoolDemo, districtDemo *frame.Frame) error {
	agencyType, err := buildLookup(districtDemo, demoLEAID, demoAgencyType, DistrictIDLen)
	if err != nil {
		return fmt.Errorf("district demographics: %w", err)
	}
	if err := mapColumn(caseData, ColNCESDistrictID, ColDistrictType, agencyType); err != nil {
		return err
	}

	leaName, err := buildLookup(districtDemo, demoLEAID, demoLEAName, DistrictIDLen)
	if err != nil {
		return fmt.Errorf("district demographics: %w", err)
	}
	if err := combineFirst(caseData, ColNCESDistrictID, ColDistrictName, leaName); err != nil {
		return err
	}

	charter, err := buildLookup(schoolDemo, demoNCESSchNum, demoCharter, SchoolIDLen)
	if err != nil {
		return fmt.Errorf("school demographics: %w", err)
	}
	for k, v := range charter {
		charter[k] = NormalizeCharter(v)
	}
	if err := mapColumn(caseData, ColNCESSchoolID, ColCharter, charter); err != nil {
		return err
	}

	schoolType, err := buildLookup(schoolDemo, demoNCESSchNum, demoSchoolType, SchoolIDLen)
	if err != nil {
		return fmt.Errorf("school demographics: %w", err)
	}
	return mapColumn(caseData, ColNCESSchoolID, ColSchoolType, schoolType)
}

// JoinDistrictDemographics enriches district-level case data with
// DistrictType and Charter from the NCES district demographics extract.
func JoinDistrictDemographics(caseData, districtDemo *frame.Frame) error {
	agencyType, err := buildLookup(districtDemo, demoLEAID, demoAgencyType, DistrictIDLen)
	if err != nil {
		return fmt.Errorf("district demographics: %w", err)
	}
	if err := mapColumn(caseData, ColNCESDistrictID, ColDistrictType, agencyType); err != nil {
		return err
	}

	charter, err := buildLookup(districtDemo, demoLEAID, demoCharter, DistrictIDLen)
	if err != nil {
		return fmt.Errorf("district demographics: %w", err)
	}
	for k, v := range charter {
		charter[k] = NormalizeCharter(v)
	}
	return mapColumn(caseData, ColNCESDistrictID, ColCharter, charter)
}

// combineFirst fills only the null cells of dstCol from the lookup,
// never overwriting existing values.
func combineFirst(f *frame.Frame, srcCol, dstCol string, lookup map[string]string) error {
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
		if !dst.IsNull(row) {
			continue
		}
		v, vok := src.Value(row)
		if !vok {
			continue
		}
		if err := dst.Set(row, MultiLookup(lookup, frame.FormatValue(v))); err != nil {
			return err
		}
	}
	return nil
}
