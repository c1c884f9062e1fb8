package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios drive a collection store through a sequence of mutations and
// ordering switches, then assert on the final materialized view.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Backend selects the backend variant: "memory" (default) or "sqlite".
	// SQLite scenarios run against a throwaway database under a temp dir.
	Backend string `yaml:"backend,omitempty"`

	// Steps is the sequence of operations to run. After each step the
	// harness waits for the store to converge on backend state before
	// recording the trace entry.
	Steps []Step `yaml:"steps"`

	// Expect validates the final materialized view.
	Expect Expect `yaml:"expect"`
}

// Step is one operation in a scenario. Exactly one field should be set.
type Step struct {
	// Add commits a new record through a blank edit session.
	Add *AddStep `yaml:"add,omitempty"`

	// Edit opens a session on the record at a position and commits changes.
	Edit *EditStep `yaml:"edit,omitempty"`

	// Delete removes the records at the given positions.
	Delete []int `yaml:"delete,omitempty"`

	// Ordering switches the active ordering by name.
	Ordering string `yaml:"ordering,omitempty"`
}

// AddStep fills a blank edit session. An all-blank add exercises the
// empty-draft no-op path.
type AddStep struct {
	Name     string `yaml:"name,omitempty"`
	Quantity *int64 `yaml:"quantity,omitempty"`
	Notes    string `yaml:"notes,omitempty"`
}

// EditStep edits the record at Position in the current view. Nil fields are
// left at the record's current values.
type EditStep struct {
	Position int     `yaml:"position"`
	Name     *string `yaml:"name,omitempty"`
	Quantity *int64  `yaml:"quantity,omitempty"`
	Notes    *string `yaml:"notes,omitempty"`
}

// Expect validates the final state of the materialized view.
type Expect struct {
	// Names is the exact expected sequence of record names, in view order.
	Names []string `yaml:"names"`
}

// label describes a step for the trace.
func (s Step) label() string {
	switch {
	case s.Add != nil:
		if s.Add.Name == "" {
			return "add (blank)"
		}
		return "add " + s.Add.Name
	case s.Edit != nil:
		return fmt.Sprintf("edit %d", s.Edit.Position)
	case s.Delete != nil:
		return fmt.Sprintf("delete %v", s.Delete)
	case s.Ordering != "":
		return "ordering " + s.Ordering
	default:
		return "noop"
	}
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	return &scenario, nil
}
