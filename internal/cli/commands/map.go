package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashir/covid-school-data/internal/mapper"
	"github.com/shashir/covid-school-data/internal/pipeline"
	"github.com/shashir/covid-school-data/internal/report"
)

// MapOptions holds flag values for the map command.
type MapOptions struct {
	Mapping          string
	DataDir          string
	Report           string
	RequiredColumns  []string
	States           []string
	NCESSchools      string
	NCESDistricts    string
	SchoolMetadata   string
	DistrictMetadata string
	Jobs             int
	NoStore          bool
}

// NewMapCommand creates the map command.
func NewMapCommand() *cobra.Command {
	opts := &MapOptions{}

	cmd := &cobra.Command{
		Use:   "map [states...]",
		Short: "Map state data workbooks to normalized CSVs",
		Long: `Process per-state source workbooks according to the mapping config:
select, rename, cast and convert columns, join NCES crosswalk and
metadata tables, validate required columns, write per-state CSVs, and
emit a per-column read report.

States may be given as positional arguments (names or abbreviations);
with none, every configured state is processed.`,
		Example: `  # Process all configured states
  statemapper map --mapping mapping.yaml --data-dir data --report report.csv

  # Process two states with NCES enrichment
  statemapper map CO KS \
    --nces-schools nces_schools.csv --nces-districts nces_districts.csv \
    --school-metadata school_metadata.xlsx --district-metadata district_metadata.xlsx

  # Enforce an output schema
  statemapper map --required-columns State,StateAbbrev,SchoolName,NCESSchoolID`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Mapping, "mapping", "m", "", "Per-state mapping YAML")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "Directory containing state data files")
	cmd.Flags().StringVar(&opts.Report, "report", "", "Read report CSV output path")
	cmd.Flags().StringSliceVar(&opts.RequiredColumns, "required-columns", nil, "Columns every output must contain")
	cmd.Flags().StringSliceVar(&opts.States, "states", nil, "States to process (names or abbreviations)")
	cmd.Flags().StringVar(&opts.NCESSchools, "nces-schools", "", "NCES school crosswalk")
	cmd.Flags().StringVar(&opts.NCESDistricts, "nces-districts", "", "NCES district crosswalk")
	cmd.Flags().StringVar(&opts.SchoolMetadata, "school-metadata", "", "NCES school metadata spreadsheet")
	cmd.Flags().StringVar(&opts.DistrictMetadata, "district-metadata", "", "NCES district metadata spreadsheet")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "States processed in parallel")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "Skip recording the run in the state database")

	return cmd
}

func runMap(cmd *cobra.Command, opts *MapOptions, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	log := GetLogger(ctx)

	// Flags override config file values only when set.
	p := pipeline.Params{
		States:               append(append([]string{}, opts.States...), args...),
		DataDir:              fallback(opts.DataDir, cfg.DataDir),
		ReportPath:           fallback(opts.Report, cfg.Report),
		SchoolsPath:          fallback(opts.NCESSchools, cfg.NCESSchools),
		DistrictsPath:        fallback(opts.NCESDistricts, cfg.NCESDistricts),
		SchoolMetadataPath:   fallback(opts.SchoolMetadata, cfg.SchoolMetadata),
		DistrictMetadataPath: fallback(opts.DistrictMetadata, cfg.DistrictMetadata),
		Jobs:                 opts.Jobs,
		Logger:               log,
	}
	if p.Jobs <= 0 {
		p.Jobs = cfg.Jobs
	}
	p.RequiredColumns = opts.RequiredColumns
	if len(p.RequiredColumns) == 0 {
		p.RequiredColumns = cfg.RequiredColumns
	}

	mappingPath := fallback(opts.Mapping, cfg.Mapping)
	mcfg, err := mapper.LoadConfig(mappingPath)
	if err != nil {
		return err
	}
	p.Config = mcfg

	if !opts.NoStore {
		st, err := openStore(cfg.StateDB)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer st.Close()
		p.Store = st
	}

	started := time.Now()
	res, runErr := pipeline.Run(ctx, p)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if len(res.Report) > 0 {
		if err := report.Render(out, res.Report, cfg.OutputFormat); err != nil {
			return err
		}
	}

	completed := 0
	var failed []string
	for _, sr := range res.States {
		if sr.Err == nil {
			completed++
		} else {
			failed = append(failed, sr.State)
		}
	}
	fmt.Fprintf(out, "Processed %d/%d states in %s\n",
		completed, len(res.States), time.Since(started).Round(time.Millisecond))
	if res.RunID != "" {
		fmt.Fprintf(out, "Run %s\n", res.RunID)
	}
	if len(failed) > 0 {
		fmt.Fprintf(out, "Failed: %s\n", strings.Join(failed, ", "))
	}
	return runErr
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
