package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shashir/covid-school-data/internal/mapper"
)

const configTemplate = `# statemapper configuration. Flags and STATEMAPPER_* environment
# variables override these values.
mapping: mapping.yaml
data_dir: data
report: report.csv
state_db: .statemapper/state.db
jobs: 4
output: table
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a statemapper project",
		Long: `Write a starter statemapper.yaml and an example mapping.yaml into
the target directory (default: current directory). Existing files are
left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	mapping, err := yaml.Marshal(exampleMapping())
	if err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"statemapper.yaml", []byte(configTemplate)},
		{"mapping.yaml", mapping},
	}
	out := cmd.OutOrStdout()
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if !force {
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Skipped %s (exists)\n", path)
				continue
			}
		}
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Created %s\n", path)
	}
	return nil
}

// exampleMapping is a minimal single-state mapping a new project can
// grow from.
func exampleMapping() *mapper.Config {
	co := "Colorado"
	abbrev := "CO"
	return &mapper.Config{
		States: []mapper.StateConfig{
			{
				State:        "Colorado",
				Abbreviation: "CO",
				Source:       "colorado.xlsx",
				Target:       "CO_schools.csv",
				Columns: []mapper.ColumnMapping{
					{Target: "State", Constant: &co},
					{Target: "StateAbbrev", Constant: &abbrev},
					{Target: "SchoolName", Source: "School Name", DType: "string", Converter: "trim"},
					{Target: "DistrictName", Source: "District Name", DType: "string", Converter: "trim"},
					{Target: "TotalCases", Source: "Cases", DType: "int", NAValues: []string{"N/A", "*"}},
				},
			},
		},
	}
}
