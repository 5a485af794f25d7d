// Package config provides configuration management for the statemapper
// CLI. Values merge from defaults, a YAML config file, STATEMAPPER_*
// environment variables, and command-line flags, in rising precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Mapping is the per-state mapping file path.
	Mapping string `koanf:"mapping"`
	// DataDir anchors relative source/target paths in the mapping.
	DataDir string `koanf:"data_dir"`
	// Report is the read report CSV output path.
	Report string `koanf:"report"`
	// RequiredColumns every state output must contain.
	RequiredColumns []string `koanf:"required_columns"`

	// NCES inputs.
	NCESSchools      string `koanf:"nces_schools"`
	NCESDistricts    string `koanf:"nces_districts"`
	SchoolMetadata   string `koanf:"school_metadata"`
	DistrictMetadata string `koanf:"district_metadata"`

	// StateDB is the run-state SQLite database path.
	StateDB string `koanf:"state_db"`
	// Jobs bounds parallel state processing.
	Jobs int `koanf:"jobs"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultMapping = "mapping.yaml"
	DefaultDataDir = "."
	DefaultStateDB = ".statemapper/state.db"
	DefaultJobs    = 4
	DefaultOutput  = "table"
)

// Config file names searched in the working directory.
var ConfigFileNames = []string{"statemapper.yaml", "statemapper.yml"}
