package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the serialized form of a scenario execution, compared
// against golden files. Field order is the JSON key order, so goldens stay
// stable across runs.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Backend      string      `json:"backend"`
	Steps        []TraceStep `json:"steps"`
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	backendName := scenario.Backend
	if backendName == "" {
		backendName = "memory"
	}
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Backend:      backendName,
		Steps:        result.Trace,
	}

	traceJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	// Keep golden files newline-terminated.
	traceJSON = append(traceJSON, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
