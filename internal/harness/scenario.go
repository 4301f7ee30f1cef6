package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qflow/internal/loader"
)

// Scenario is a conformance test: a circuit, how to run it, and what the
// resulting shots must satisfy.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description documents what the scenario checks.
	Description string `yaml:"description"`

	// Circuit is the path of a circuit file. Relative paths are resolved
	// against the scenario file's directory.
	Circuit string `yaml:"circuit"`

	// Seed fixes the simulator seed so results are reproducible.
	Seed uint64 `yaml:"seed"`

	// Shots is the number of shots to run. Must be positive.
	Shots int `yaml:"shots"`

	// Workers is the shot parallelism. Zero means sequential.
	Workers int `yaml:"workers,omitempty"`

	// Assertions are checked against the shots.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion types.
const (
	// AssertOutcomes requires every shot to be one of Values.
	AssertOutcomes = "outcomes"

	// AssertAlways requires every shot to match Pattern, where '.' matches
	// either bit.
	AssertAlways = "always"

	// AssertCorrelated requires the classical bits in Bits to be equal in
	// every shot.
	AssertCorrelated = "correlated"

	// AssertProbability requires the fraction of shots with bit Bit set to
	// be within Tolerance of Expect.
	AssertProbability = "probability"

	// AssertCount requires the number of shots equal to Value to lie in
	// [Min, Max].
	AssertCount = "count"
)

// Assertion is one check over a scenario's shots.
type Assertion struct {
	Type string `yaml:"type"`

	Values    []string `yaml:"values,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Bits      []int    `yaml:"bits,omitempty"`
	Bit       int      `yaml:"bit,omitempty"`
	Expect    float64  `yaml:"expect,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Value     string   `yaml:"value,omitempty"`
	Min       int      `yaml:"min,omitempty"`
	Max       int      `yaml:"max,omitempty"`
}

// LoadScenario reads a scenario file and resolves its circuit path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos such as "assertion:" for "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Circuit != "" && !filepath.IsAbs(scenario.Circuit) {
		scenario.Circuit = filepath.Join(filepath.Dir(path), scenario.Circuit)
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
	if s.Circuit == "" {
		return fmt.Errorf("circuit is required")
	}
	if _, err := loader.FormatOf(s.Circuit); err != nil {
		return err
	}
	if _, err := os.Stat(s.Circuit); err != nil {
		return fmt.Errorf("circuit file not found: %s", s.Circuit)
	}
	if s.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", s.Shots)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", s.Workers)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func isBits(s string, wildcard bool) bool {
	for i := range len(s) {
		switch s[i] {
		case '0', '1':
		case '.':
			if !wildcard {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOutcomes:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for outcomes", index)
		}
		for _, v := range a.Values {
			if !isBits(v, false) {
				return fmt.Errorf("assertions[%d]: value %q is not a bit string", index, v)
			}
		}
	case AssertAlways:
		if a.Pattern == "" || !isBits(a.Pattern, true) {
			return fmt.Errorf("assertions[%d]: pattern of 0, 1 and . is required for always", index)
		}
	case AssertCorrelated:
		if len(a.Bits) < 2 {
			return fmt.Errorf("assertions[%d]: at least two bits are required for correlated", index)
		}
	case AssertProbability:
		if a.Bit < 0 {
			return fmt.Errorf("assertions[%d]: bit must be non-negative for probability", index)
		}
		if a.Expect < 0 || a.Expect > 1 {
			return fmt.Errorf("assertions[%d]: expect must be in [0, 1] for probability", index)
		}
		if a.Tolerance <= 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be positive for probability", index)
		}
	case AssertCount:
		if a.Value == "" || !isBits(a.Value, false) {
			return fmt.Errorf("assertions[%d]: value bit string is required for count", index)
		}
		if a.Min < 0 || a.Max < a.Min {
			return fmt.Errorf("assertions[%d]: need 0 <= min <= max for count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
