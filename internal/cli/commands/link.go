package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/nces"
)

// LinkOptions holds flag values for the link command.
type LinkOptions struct {
	SchoolLookups   []string
	DistrictLookups []string
	Output          string
	InPlace         bool
}

// NewLinkCommand creates the link command.
func NewLinkCommand() *cobra.Command {
	opts := &LinkOptions{}

	cmd := &cobra.Command{
		Use:   "link <file>",
		Short: "Apply curated name-to-NCES-ID lookups to a mapped CSV",
		Long: `Resolve SchoolName and DistrictName columns to NCES IDs using
hand-reviewed lookup files. School lookups also infer NCESDistrictID
from the matched school ID. Rows whose name is marked "drop" in a
lookup are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringSliceVar(&opts.SchoolLookups, "school-lookups", nil, "Curated school lookup CSVs")
	cmd.Flags().StringSliceVar(&opts.DistrictLookups, "district-lookups", nil, "Curated district lookup CSVs")
	cmd.Flags().StringVarP(&opts.Output, "output", "O", "", "Output path (default: <input>_linked.csv)")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "Overwrite the input file")

	return cmd
}

func runLink(cmd *cobra.Command, opts *LinkOptions, path string) error {
	log := GetLogger(cmd.Context())

	if len(opts.SchoolLookups) == 0 && len(opts.DistrictLookups) == 0 {
		return fmt.Errorf("link: at least one of --school-lookups or --district-lookups is required")
	}

	data, err := frame.ReadCSVFile(path, nil)
	if err != nil {
		return err
	}
	before := data.Len()

	if len(opts.SchoolLookups) > 0 {
		lk, err := nces.ReadSchoolLookups(opts.SchoolLookups)
		if err != nil {
			return err
		}
		if data, err = nces.ApplySchoolLookup(data, lk); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("applied school lookups", "entries", len(lk.IDs), "drops", len(lk.Drops))
	}
	if len(opts.DistrictLookups) > 0 {
		lk, err := nces.ReadDistrictLookups(opts.DistrictLookups)
		if err != nil {
			return err
		}
		if data, err = nces.ApplyDistrictLookup(data, lk); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("applied district lookups", "entries", len(lk.IDs), "drops", len(lk.Drops))
	}

	out := linkedPath(path, opts)
	if err := data.WriteCSVFile(out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d rows, %d dropped)\n", path, out, data.Len(), before-data.Len())
	return nil
}

func linkedPath(input string, opts *LinkOptions) string {
	if opts.InPlace {
		return input
	}
	if opts.Output != "" {
		return opts.Output
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_linked" + ext
}
