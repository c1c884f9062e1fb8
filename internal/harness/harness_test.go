package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", name+".yaml"))
	require.NoError(t, err)
	require.Equal(t, name, scenario.Name, "scenario name must match file name")
	return scenario
}

func TestScenariosPass(t *testing.T) {
	names := []string{
		"ordering-cycle",
		"edit-and-delete",
		"blank-draft-noop",
		"durable-crud",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Passed(), "scenario failed: %v", result.Errors)
		})
	}
}

func TestRunRecordsOneTraceStepPerStep(t *testing.T) {
	scenario := loadTestScenario(t, "ordering-cycle")
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Len(t, result.Trace, len(scenario.Steps))
}

func TestExpectMismatchFailsScenario(t *testing.T) {
	scenario := loadTestScenario(t, "blank-draft-noop")
	scenario.Expect.Names = []string{"Tom"}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "final names")
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := Run(&Scenario{Name: "bad", Backend: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestEditOutOfRangeFails(t *testing.T) {
	pos := 5
	_, err := Run(&Scenario{
		Name:  "bad-edit",
		Steps: []Step{{Edit: &EditStep{Position: pos}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadScenarioRequiresName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, writeFile(path, "description: no name here\n"))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}
