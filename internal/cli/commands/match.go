package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	"github.com/shashir/covid-school-data/internal/frame"
	"github.com/shashir/covid-school-data/internal/match"
	"github.com/shashir/covid-school-data/internal/nces"
)

const matchedSuffix = "_with_NCES_matches.csv"

// MatchOptions holds flag values shared by the match subcommands.
type MatchOptions struct {
	Roster    string
	OutputDir string
	Threshold float64
	Limit     int
	Weighted  bool
}

// NewMatchCommand creates the match command with its schools and
// districts subcommands.
func NewMatchCommand() *cobra.Command {
	opts := &MatchOptions{}

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Fuzzy-match school or district names to NCES IDs",
		Long: `Match entity names in mapped state CSVs against an NCES crosswalk
roster. Input files are named with a two-letter state prefix such as
CO_schools.csv; each produces a candidate file alongside it (suffix
` + matchedSuffix + `) for hand review.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.Roster, "roster", "r", "", "NCES crosswalk CSV to match against")
	cmd.PersistentFlags().StringVar(&opts.OutputDir, "output-dir", "", "Directory for candidate files (default: next to input)")
	cmd.PersistentFlags().Float64Var(&opts.Threshold, "threshold", 0, "Minimum match score")
	cmd.PersistentFlags().IntVar(&opts.Limit, "limit", 0, "Candidates kept per name")
	cmd.PersistentFlags().BoolVar(&opts.Weighted, "weighted", false, "Use IDF-weighted token overlap")
	_ = cmd.MarkPersistentFlagRequired("roster")

	cmd.AddCommand(
		newMatchSubCommand(opts, "schools", nces.ColSchoolName, "sch_name", nces.LoadSchools),
		newMatchSubCommand(opts, "districts", nces.ColDistrictName, "district_name", nces.LoadDistricts),
	)
	return cmd
}

func newMatchSubCommand(opts *MatchOptions, kind, queryCol, rosterCol string, load func(string) (*frame.Frame, error)) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <files...>",
		Short: "Match " + kind + " by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := load(opts.Roster)
			if err != nil {
				return err
			}
			return runMatch(cmd, opts, roster, queryCol, rosterCol, args)
		},
	}
}

func runMatch(cmd *cobra.Command, opts *MatchOptions, roster *frame.Frame, queryCol, rosterCol string, paths []string) error {
	log := GetLogger(cmd.Context())

	mopts := match.DefaultOptions()
	if opts.Threshold > 0 {
		mopts.Threshold = opts.Threshold
	}
	if opts.Limit > 0 {
		mopts.Limit = opts.Limit
	}
	mopts.Weighted = opts.Weighted

	pw := progress.NewWriter()
	pw.SetOutputWriter(cmd.ErrOrStderr())
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.Style().Visibility.ETA = true
	go pw.Render()
	defer pw.Stop()

	for _, path := range paths {
		input, err := frame.ReadCSVFile(path, nil)
		if err != nil {
			return err
		}
		input = input.DropDuplicates()

		abbrev, err := match.ValidateStateFile(path, input)
		if err != nil {
			return err
		}
		stateRoster, err := nces.FilterState(roster, abbrev)
		if err != nil {
			return err
		}
		if stateRoster.Len() == 0 {
			return fmt.Errorf("%s: roster has no rows for state %s", path, abbrev)
		}

		m, err := match.NewMatcher(stateRoster, rosterCol, mopts)
		if err != nil {
			return err
		}

		tracker := &progress.Tracker{
			Message: filepath.Base(path),
			Total:   int64(input.Len()),
			Units:   progress.UnitsDefault,
		}
		pw.AppendTracker(tracker)

		matched, err := m.MatchFrame(input, queryCol, tracker)
		if err != nil {
			tracker.MarkAsErrored()
			return fmt.Errorf("%s: %w", path, err)
		}
		tracker.MarkAsDone()

		out := matchedPath(path, opts.OutputDir)
		if err := matched.WriteCSVFile(out); err != nil {
			return err
		}
		log.Info("matched", "input", path, "output", out, "rows", matched.Len())
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d rows)\n", path, out, matched.Len())
	}
	return nil
}

// matchedPath places the candidate file next to the input unless an
// output directory is given.
func matchedPath(input, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + matchedSuffix
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}
