package mapper

// config.go - the per-state mapping configuration. The mapping file is
// declarative YAML: one entry per state naming the source workbook, the
// output CSV, the ordered column mappings, and optional NCES join specs.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shashir/covid-school-data/internal/frame"
)

// Config is the root of a mapping file.
type Config struct {
	States []StateConfig `yaml:"states"`
}

// StateConfig describes how to process one state's source workbook.
type StateConfig struct {
	// State name, e.g. "Colorado".
	State string `yaml:"state"`
	// Two-letter abbreviation, e.g. "CO".
	Abbreviation string `yaml:"abbreviation"`
	// Source XLSX path, relative to the data directory.
	Source string `yaml:"source"`
	// Output CSV path, relative to the data directory.
	Target string `yaml:"target"`
	// Sheet holding the data. Defaults to "Data for {state}".
	Sheet string `yaml:"sheet"`
	// Multiple sheets to concatenate; overrides Sheet.
	Sheets []string `yaml:"sheets"`
	// Ordered column mappings; output columns follow this order.
	Columns []ColumnMapping `yaml:"columns"`
	// Optional NCES roster joins.
	SchoolsJoin   *JoinSpec `yaml:"nces_schools_join"`
	DistrictsJoin *JoinSpec `yaml:"nces_districts_join"`
}

// ColumnMapping defines one output column.
type ColumnMapping struct {
	// Output column name.
	Target string `yaml:"target"`
	// Source column name. Mutually exclusive with Constant.
	Source string `yaml:"source"`
	// Output dtype: string, int, float or bool. Defaults to string.
	DType string `yaml:"dtype"`
	// Named converter applied to raw cells instead of a dtype cast.
	Converter string `yaml:"converter"`
	// Constant value for the whole column.
	Constant *string `yaml:"constant"`
	// Cell values treated as null, besides blanks.
	NAValues []string `yaml:"na_values"`
}

// JoinSpec configures a left join against an NCES roster.
type JoinSpec struct {
	LeftOn         string `yaml:"left_on"`
	LeftTransform  string `yaml:"left_transform"`
	RightOn        string `yaml:"right_on"`
	RightTransform string `yaml:"right_transform"`
}

// SheetNames returns the sheets to read for the state, applying the
// "Data for {state}" default.
func (s *StateConfig) SheetNames() []string {
	if len(s.Sheets) > 0 {
		return s.Sheets
	}
	if s.Sheet != "" {
		return []string{s.Sheet}
	}
	return []string{fmt.Sprintf("Data for %s", s.State)}
}

// Kind returns the mapping's output kind.
func (m *ColumnMapping) Kind() (frame.Kind, error) {
	if m.DType == "" {
		return frame.String, nil
	}
	return frame.ParseKind(m.DType)
}

// LoadConfig reads and validates a mapping file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse mapping config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mapping config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every state and column mapping for consistency.
func (c *Config) Validate() error {
	if len(c.States) == 0 {
		return fmt.Errorf("no states configured")
	}
	seen := make(map[string]struct{}, len(c.States))
	for i := range c.States {
		s := &c.States[i]
		if err := s.validate(); err != nil {
			return err
		}
		key := strings.ToUpper(s.Abbreviation)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("state %s: duplicate abbreviation %s", s.State, s.Abbreviation)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (s *StateConfig) validate() error {
	switch {
	case s.State == "":
		return fmt.Errorf("state entry missing state name")
	case s.Abbreviation == "":
		return fmt.Errorf("state %s: missing abbreviation", s.State)
	case s.Source == "":
		return fmt.Errorf("state %s: missing source", s.State)
	case s.Target == "":
		return fmt.Errorf("state %s: missing target", s.State)
	case len(s.Columns) == 0:
		return fmt.Errorf("state %s: no column mappings", s.State)
	}

	targets := make(map[string]struct{}, len(s.Columns))
	for i := range s.Columns {
		m := &s.Columns[i]
		if m.Target == "" {
			return fmt.Errorf("state %s: column mapping %d missing target", s.State, i)
		}
		if _, dup := targets[m.Target]; dup {
			return fmt.Errorf("state %s: duplicate target column %s", s.State, m.Target)
		}
		targets[m.Target] = struct{}{}

		if m.Constant != nil && m.Source != "" {
			return fmt.Errorf("state %s: column %s: provide either constant or source, not both",
				s.State, m.Target)
		}
		if _, err := m.Kind(); err != nil {
			return fmt.Errorf("state %s: column %s: %w", s.State, m.Target, err)
		}
		if m.Converter != "" {
			if m.Constant != nil {
				return fmt.Errorf("state %s: column %s: converter is meaningless with constant",
					s.State, m.Target)
			}
			if _, err := LookupConverter(m.Converter); err != nil {
				return fmt.Errorf("state %s: column %s: %w", s.State, m.Target, err)
			}
			// Converters emit strings, so a typed dtype can never hold
			// their output.
			if k, _ := m.Kind(); k != frame.String {
				return fmt.Errorf("state %s: column %s: converter %s requires dtype string, got %s",
					s.State, m.Target, m.Converter, m.DType)
			}
		}
	}

	for _, j := range []*JoinSpec{s.SchoolsJoin, s.DistrictsJoin} {
		if j == nil {
			continue
		}
		if j.LeftOn == "" || j.RightOn == "" {
			return fmt.Errorf("state %s: join spec needs left_on and right_on", s.State)
		}
		if _, ok := targets[j.LeftOn]; !ok {
			return fmt.Errorf("state %s: join left_on %q is not an output column", s.State, j.LeftOn)
		}
		if _, err := LookupKeyTransform(j.LeftTransform); err != nil {
			return fmt.Errorf("state %s: %w", s.State, err)
		}
		if _, err := LookupKeyTransform(j.RightTransform); err != nil {
			return fmt.Errorf("state %s: %w", s.State, err)
		}
	}
	return nil
}

// SelectStates resolves a filter of state names or abbreviations
// (case-insensitive) to the matching configs. An empty filter selects
// every configured state.
func (c *Config) SelectStates(filter []string) ([]StateConfig, error) {
	if len(filter) == 0 {
		return c.States, nil
	}
	byKey := make(map[string]*StateConfig, 2*len(c.States))
	for i := range c.States {
		s := &c.States[i]
		byKey[strings.ToLower(s.State)] = s
		byKey[strings.ToLower(s.Abbreviation)] = s
	}
	var out []StateConfig
	picked := make(map[string]struct{}, len(filter))
	for _, name := range filter {
		s, ok := byKey[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("state %q is not in the mapping config", name)
		}
		if _, dup := picked[s.Abbreviation]; dup {
			continue
		}
		picked[s.Abbreviation] = struct{}{}
		out = append(out, *s)
	}
	return out, nil
}
