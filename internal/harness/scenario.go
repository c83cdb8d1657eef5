package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: schema files, seed data
// and a list of request cases run against them.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schemas is a CUE directory or file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Schemas string `yaml:"schemas"`

	// Setup holds SQL scripts run in order against a fresh database.
	Setup []string `yaml:"setup"`

	// Cases are the requests to run.
	Cases []Case `yaml:"cases"`
}

// Case is one request against a named filter.
type Case struct {
	Name string `yaml:"name"`

	// Filter is the registered definition name.
	Filter string `yaml:"filter"`

	// Query is a URL query string, e.g. "age__gte=30&order_by=-age".
	Query string `yaml:"query"`

	// IgnoreUnknown drops undeclared parameters instead of rejecting them.
	IgnoreUnknown bool `yaml:"ignore_unknown,omitempty"`

	// Expect validates the outcome. If nil, only the golden snapshot
	// constrains the case.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a case. Row expectations and
// error expectations are mutually exclusive.
type Expect struct {
	// Keys are the entity key values of the returned rows, in order.
	Keys []any `yaml:"keys,omitempty"`

	// Count is the expected number of rows.
	Count *int `yaml:"count,omitempty"`

	// Rows are subset matches against the returned rows, in order.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// SQLContains lists fragments the compiled SQL must contain.
	SQLContains []string `yaml:"sql_contains,omitempty"`

	// Errors are the expected report entries. Each listed entry must be
	// present; the report may not contain others.
	Errors []ExpectedError `yaml:"errors,omitempty"`
}

// ExpectedError matches one report entry by kind and field.
type ExpectedError struct {
	Kind  string `yaml:"kind"`
	Field string `yaml:"field"`
}

func (e *Expect) wantsRows() bool {
	return e.Keys != nil || e.Count != nil || e.Rows != nil || e.SQLContains != nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "case:" vs "cases:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schemas != "" && !filepath.IsAbs(scenario.Schemas) {
		scenario.Schemas = filepath.Join(filepath.Dir(path), scenario.Schemas)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schemas == "" {
		return fmt.Errorf("schemas is required")
	}
	if _, err := os.Stat(s.Schemas); os.IsNotExist(err) {
		return fmt.Errorf("schemas not found: %s", s.Schemas)
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Filter == "" {
			return fmt.Errorf("cases[%d]: filter is required", i)
		}
		if c.Expect == nil {
			continue
		}
		if c.Expect.wantsRows() && len(c.Expect.Errors) > 0 {
			return fmt.Errorf("cases[%d].expect: errors cannot be combined with row expectations", i)
		}
		if c.Expect.Count != nil && *c.Expect.Count < 0 {
			return fmt.Errorf("cases[%d].expect: count must be non-negative", i)
		}
		for j, e := range c.Expect.Errors {
			if e.Kind == "" {
				return fmt.Errorf("cases[%d].expect.errors[%d]: kind is required", i, j)
			}
		}
	}
	return nil
}
