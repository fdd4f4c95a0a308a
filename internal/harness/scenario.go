package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tasktree/internal/model"
)

// Scenario defines a sequence of engine operations and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Actor is attributed to every history entry. Defaults to "system".
	Actor string `yaml:"actor,omitempty"`

	// Setup steps establish initial state and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are the operations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace, history, and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes one engine operation.
type Step struct {
	// Op names the operation (see Operations).
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args"`

	// Expect, when set, overrides the default expectation of success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies a step's expected outcome.
type Expect struct {
	// Error is the expected error code. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Result holds expected result fields (subset match).
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the run after the flow completes.
type Assertion struct {
	Type    string         `yaml:"type"`
	Op      string         `yaml:"op,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Action  string         `yaml:"action,omitempty"`
	Actions []string       `yaml:"actions,omitempty"`
	List    string         `yaml:"list,omitempty"`
	Item    string         `yaml:"item,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Expect  map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertHistoryContains = "history_contains"
	AssertHistoryCount    = "history_count"
	AssertHistoryOrder    = "history_order"
	AssertItemState       = "item_state"
	AssertListProgress    = "list_progress"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Error != "" && step.Expect.Result != nil {
			return fmt.Errorf("flow[%d].expect: error and result are mutually exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if _, ok := operations[step.Op]; !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertHistoryContains, AssertHistoryCount:
		if a.Action != "" && !model.Action(a.Action).Valid() {
			return fmt.Errorf("assertions[%d]: unknown action %q", index, a.Action)
		}
		if a.Type == AssertHistoryContains && a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for history_contains", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHistoryOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for history_order", index)
		}
		for _, act := range a.Actions {
			if !model.Action(act).Valid() {
				return fmt.Errorf("assertions[%d]: unknown action %q", index, act)
			}
		}
	case AssertItemState:
		if a.List == "" || a.Item == "" {
			return fmt.Errorf("assertions[%d]: list and item are required for item_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for item_state", index)
		}
	case AssertListProgress:
		if a.List == "" {
			return fmt.Errorf("assertions[%d]: list is required for list_progress", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for list_progress", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
