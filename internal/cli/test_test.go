package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harnessTestdata returns absolute paths to the harness scenarios and goldens.
func harnessTestdata(t *testing.T) (scenarios, golden string) {
	t.Helper()
	base, err := filepath.Abs(filepath.Join("..", "harness", "testdata"))
	require.NoError(t, err)
	return filepath.Join(base, "scenarios"), filepath.Join(base, "golden")
}

func runTestCommand(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(context.Background(), append([]string{"test"}, args...), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestTestCommandMissingArgs(t *testing.T) {
	isolateConfig(t)

	code, _, stderr := runTestCommand(t)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	isolateConfig(t)

	code, _, stderr := runTestCommand(t, "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	dir := isolateConfig(t)
	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0755))

	code, out, _ := runTestCommand(t, scenariosDir)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandPassesAgainstGoldens(t *testing.T) {
	scenarios, golden := harnessTestdata(t)
	isolateConfig(t)

	code, out, _ := runTestCommand(t, scenarios, "--golden-dir", golden)
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "✓ scenario_a_register")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
}

func TestTestCommandJSONOutput(t *testing.T) {
	scenarios, golden := harnessTestdata(t)
	isolateConfig(t)

	code, out, _ := runTestCommand(t, scenarios, "--golden-dir", golden, "--format", "json", "--filter", "scenario_[ab]*")
	require.Equal(t, ExitSuccess, code, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "scenario_a_register", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "scenario_b_register_event", resp.Data.Scenarios[1].Name)
}

func TestTestCommandUpdateWritesGoldens(t *testing.T) {
	scenarios, golden := harnessTestdata(t)
	dir := isolateConfig(t)
	out := filepath.Join(dir, "golden")

	code, _, _ := runTestCommand(t, scenarios, "--golden-dir", out, "--update", "--filter", "scenario_c*")
	require.Equal(t, ExitSuccess, code)

	written, err := os.ReadFile(filepath.Join(out, "scenario_c_unknown_product.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(golden, "scenario_c_unknown_product.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	_, err = os.Stat(filepath.Join(out, "scenario_a_register.golden"))
	assert.True(t, os.IsNotExist(err), "filtered scenarios are not written")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	scenarios, _ := harnessTestdata(t)
	dir := isolateConfig(t)
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(golden, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "scenario_a_register.golden"), []byte("{}"), 0644))

	code, out, _ := runTestCommand(t, scenarios, "--golden-dir", golden, "--filter", "scenario_a*")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "✗ scenario_a_register")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := isolateConfig(t)
	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0755))

	scenario := `name: wrong_expectation
description: expects a success that cannot happen
flow:
  - invoke: getProduct
    args: {id: 5}
    expect:
      case: Success
`
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "wrong.yaml"), []byte(scenario), 0644))

	code, out, _ := runTestCommand(t, scenariosDir, "--format", "json")
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := isolateConfig(t)
	scenariosDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scenariosDir, "bad.yaml"), []byte("name: Bad Name\n"), 0644))

	code, out, _ := runTestCommand(t, scenariosDir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{}, 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "d.yaml"), []byte{}, 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	files, err = findScenarioFiles(dir, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
