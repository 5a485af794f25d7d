package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/nces"
)

// JoinOptions holds flag values for the join command.
type JoinOptions struct {
	SchoolDemographics   string
	DistrictDemographics string
	Output               string
	InPlace              bool
}

// NewJoinCommand creates the join command.
func NewJoinCommand() *cobra.Command {
	opts := &JoinOptions{}

	cmd := &cobra.Command{
		Use:   "join <file>",
		Short: "Join NCES demographics into a linked CSV",
		Long: `Enrich a linked CSV with NCES CCD demographics keyed on
NCESSchoolID and NCESDistrictID: DistrictType from agency_type,
SchoolType, Charter (normalized to Yes/No), and DistrictName where
missing. School-level files need both demographics tables;
district-level files only the district table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.SchoolDemographics, "school-demographics", "", "NCES school demographics table")
	cmd.Flags().StringVar(&opts.DistrictDemographics, "district-demographics", "", "NCES district demographics table")
	cmd.Flags().StringVarP(&opts.Output, "output", "O", "", "Output path (default: <input>_joined.csv)")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "Overwrite the input file")
	_ = cmd.MarkFlagRequired("district-demographics")

	return cmd
}

func runJoin(cmd *cobra.Command, opts *JoinOptions, path string) error {
	data, err := frame.ReadCSVFile(path, nil)
	if err != nil {
		return err
	}

	districtDemo, err := nces.LoadMetadata(opts.DistrictDemographics)
	if err != nil {
		return err
	}

	switch {
	case data.HasColumn(nces.ColNCESSchoolID):
		if opts.SchoolDemographics == "" {
			return fmt.Errorf("%s: school-level file needs --school-demographics", path)
		}
		schoolDemo, err := nces.LoadMetadata(opts.SchoolDemographics)
		if err != nil {
			return err
		}
		if err := nces.JoinSchoolDemographics(data, schoolDemo, districtDemo); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case data.HasColumn(nces.ColNCESDistrictID):
		if err := nces.JoinDistrictDemographics(data, districtDemo); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: no %s or %s column; run link first", path, nces.ColNCESSchoolID, nces.ColNCESDistrictID)
	}

	out := joinedPath(path, opts)
	if err := data.WriteCSVFile(out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d rows)\n", path, out, data.Len())
	return nil
}

func joinedPath(input string, opts *JoinOptions) string {
	if opts.InPlace {
		return input
	}
	if opts.Output != "" {
		return opts.Output
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_joined" + ext
}
