package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies testdata circuits and scenarios into a temp dir,
// keeping the relative layout scenario files refer to. It returns the
// scenarios directory.
func copyScenarios(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"circuits", "scenarios"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	for _, c := range []string{"bell.yaml", "flip.yaml"} {
		copyFile(t, filepath.Join("testdata", "circuits", c), filepath.Join(root, "circuits", c))
	}
	for _, n := range names {
		copyFile(t, filepath.Join("testdata", "scenarios", n), filepath.Join(root, "scenarios", n))
	}
	return filepath.Join(root, "scenarios")
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestTestCommand_PassesTestdata(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ bell\n")
	assert.Contains(t, out, "✓ flip\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "testdata/scenarios")
	require.NoError(t, err)

	resp, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	for _, s := range result.Scenarios {
		assert.True(t, s.Pass, s.Name)
		assert.True(t, s.Deterministic, s.Name)
	}
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "testdata/scenarios", "--filter", "fl*")
	require.NoError(t, err)

	_, result := decodeResponse[TestResult](t, out)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "flip", result.Scenarios[0].Name)

	_, err = execute(t, "test", "testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := copyScenarios(t, "flip.yaml")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ flip (golden updated)")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "flip.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("testdata", "scenarios", "golden", "flip.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, "test", dir)
	require.NoError(t, err, "freshly written golden must match")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := copyScenarios(t, "flip.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "flip.golden"), []byte("{}\n"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ flip")
	assert.Contains(t, out, "histogram does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_FailingAssertion(t *testing.T) {
	dir := copyScenarios(t)
	scenario := `name: wrong
circuit: ../circuits/flip.yaml
seed: 1
shots: 8
assertions:
  - type: always
    pattern: "00"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	assert.True(t, result.Scenarios[0].Deterministic)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTestCommand_BadScenarioFile(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_EmptyAndMissing(t *testing.T) {
	empty := t.TempDir()

	out, err := execute(t, "test", empty)
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	out, err = execute(t, "--format", "json", "test", empty)
	require.NoError(t, err)
	resp, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, result.Scenarios)

	_, err = execute(t, "test", filepath.Join(empty, "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test")
	require.Error(t, err)
}

func TestFindScenarioFiles(t *testing.T) {
	files, err := findScenarioFiles("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "bell.yaml"),
		filepath.Join("testdata", "scenarios", "flip.yaml"),
	}, files)

	files, err = findScenarioFiles("testdata/scenarios", "b*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("testdata", "scenarios", "bell.yaml")}, files)

	_, err = findScenarioFiles("testdata/scenarios", "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("s", "golden", "bell.golden"),
		goldenFilePath(filepath.Join("s", "bell.yaml")))
}

func TestTestCommand_Help(t *testing.T) {
	out, err := execute(t, "test", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
}
