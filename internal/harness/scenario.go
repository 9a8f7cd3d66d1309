package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ruleflow/internal/compiler"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/vec"
)

// Scenario defines a rule program run and the causal facts expected of it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is an optional path to a CUE program. When set, Init, Rules,
	// Flags and Directives must be empty.
	Program string `yaml:"program,omitempty"`

	// Init lists the initial spaces.
	Init []string `yaml:"init,omitempty"`

	// Rules are instructions in compact notation, e.g. "AB -> BA -pl[inf]".
	Rules []string `yaml:"rules,omitempty"`

	// Flags are global flags in compact notation, e.g. "-pl[inf] -mr[0,inf]".
	Flags string `yaml:"flags,omitempty"`

	// Directives such as "@merge(0)" or "@decode(wns, AB, 30)".
	Directives []string `yaml:"directives,omitempty"`

	// Steps evolves exactly this many steps (stopping early when inert).
	Steps int `yaml:"steps,omitempty"`

	// UntilInert evolves until no rule fires, bounded by MaxSteps.
	UntilInert bool `yaml:"until_inert,omitempty"`

	// MaxSteps caps UntilInert. Zero uses the program's or engine default.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// RegexBackend selects the regex engine for /regex/ selectors: "re2"
	// (default) or "regexp2".
	RegexBackend string `yaml:"regex_backend,omitempty"`

	// FlowID is an optional fixed flow id for deterministic tests.
	// If empty, testutil.DefaultFlowID is used.
	FlowID string `yaml:"flow_id,omitempty"`

	// Assertions validate the final snapshot.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one fact about the evolved flow.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_spaces": last event's spaces equal Spaces
	// - "inert": flow ended inert iff Value
	// - "event_count": number of events equals Count
	// - "causal_predecessors": event at Time has exactly Predecessors
	// - "causal_distance": event at Time has causal distance Distance
	Type string `yaml:"type"`

	// Spaces are the expected final space texts (final_spaces).
	Spaces []string `yaml:"spaces,omitempty"`

	// Value is the expected inertness (inert).
	Value *bool `yaml:"value,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Time selects an event (causal_predecessors, causal_distance).
	Time *int `yaml:"time,omitempty"`

	// Predecessors are the expected predecessor times (causal_predecessors).
	Predecessors []int `yaml:"predecessors,omitempty"`

	// Distance is the expected causal distance (causal_distance).
	Distance *int `yaml:"distance,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalSpaces        = "final_spaces"
	AssertInert              = "inert"
	AssertEventCount         = "event_count"
	AssertCausalPredecessors = "causal_predecessors"
	AssertCausalDistance     = "causal_distance"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative program path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the program path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating file references.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// BuildProgram returns the program the scenario runs: the referenced CUE
// program, or one assembled from the inline fields. Scenario step settings
// are applied on top.
func (s *Scenario) BuildProgram() (*ir.Program, error) {
	var prog *ir.Program
	if s.Program != "" {
		p, err := compiler.CompileFile(s.Program)
		if err != nil {
			return nil, err
		}
		prog = p
	} else {
		prog = &ir.Program{
			Name:  s.Name,
			Init:  append([]string(nil), s.Init...),
			Flags: ir.Flags{},
		}
		if s.Flags != "" {
			flags, err := compiler.ParseFlags(s.Flags)
			if err != nil {
				return nil, fmt.Errorf("flags: %w", err)
			}
			prog.Flags = flags
		}
		for i, src := range s.Rules {
			in, err := compiler.ParseInstruction(src)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			prog.Instructions = append(prog.Instructions, in)
		}
		for i, src := range s.Directives {
			d, err := compiler.ParseDirective(src)
			if err != nil {
				return nil, fmt.Errorf("directives[%d]: %w", i, err)
			}
			prog.Directives = append(prog.Directives, d)
		}
	}

	if s.Steps > 0 {
		prog.Steps, prog.UntilInert = s.Steps, false
	}
	if s.UntilInert {
		prog.Steps, prog.UntilInert = 0, true
	}
	if s.MaxSteps > 0 {
		prog.MaxSteps = s.MaxSteps
	}
	return prog, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program != "" {
		if len(s.Init) > 0 || len(s.Rules) > 0 || s.Flags != "" || len(s.Directives) > 0 {
			return fmt.Errorf("program cannot be combined with init, rules, flags or directives")
		}
		if _, err := os.Stat(s.Program); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.Program)
		}
	} else if len(s.Rules) == 0 && len(s.Directives) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if s.Steps < 0 {
		return fmt.Errorf("steps must be non-negative")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if s.Steps > 0 && s.UntilInert {
		return fmt.Errorf("steps and until_inert are mutually exclusive")
	}
	if _, err := vec.ParseBackend(s.RegexBackend); err != nil {
		return err
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

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalSpaces:
		if a.Spaces == nil {
			return fmt.Errorf("assertions[%d]: spaces list is required for final_spaces", index)
		}
	case AssertInert:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for inert", index)
		}
	case AssertEventCount:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be at least 1 for event_count", index)
		}
	case AssertCausalPredecessors:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for causal_predecessors", index)
		}
		if a.Predecessors == nil {
			return fmt.Errorf("assertions[%d]: predecessors list is required for causal_predecessors", index)
		}
	case AssertCausalDistance:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for causal_distance", index)
		}
		if a.Distance == nil {
			return fmt.Errorf("assertions[%d]: distance is required for causal_distance", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Time != nil && *a.Time < 0 {
		return fmt.Errorf("assertions[%d]: time must be non-negative", index)
	}
	return nil
}
