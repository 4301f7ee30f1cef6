package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/loader"
)

func TestCompile_FlattensNestedDefinitions(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", "testdata/circuits/nested.yml")
	require.NoError(t, err)

	resp, result := decodeResponse[CompilationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "nested", result.Circuit)
	assert.Equal(t, 4, result.Qubits)
	assert.Equal(t, 2, result.Cbits)
	assert.Equal(t, []string{
		"hadamard(1)",
		"cnot(1,3)",
		"measure(3->0)",
		"measure(1->1)",
	}, result.Ops)
	assert.Empty(t, result.Output)
}

func TestCompile_TextOutput(t *testing.T) {
	out, err := execute(t, "compile", "testdata/circuits/flip.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled flip: 2 qubits, 2 cbits, 3 op(s)\n")
	assert.Contains(t, out, "   0  pauli_x(0)\n")
	assert.Contains(t, out, "   1  cnot(0,1)\n")
	assert.Contains(t, out, "   2  measure(0->0,1->1)\n")
}

func TestCompile_WritesFlatCircuit(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "flat.yaml")

	out, err := execute(t, "compile", "testdata/circuits/nested.yml", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote flat circuit to "+dest)

	original, err := loader.Load("testdata/circuits/nested.yml")
	require.NoError(t, err)
	flat, err := loader.Load(dest)
	require.NoError(t, err)

	want, err := flow.Flatten(original)
	require.NoError(t, err)
	got, err := flow.Flatten(flat)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, flat.Len(), len(got), "the written circuit has no subcircuits")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "define")
	assert.NotContains(t, string(data), "apply")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		exit int
		code string
	}{
		{"missing file", "testdata/circuits/absent.yaml", ExitCommandError, ErrCodeNotFound},
		{"definition cycle", "testdata/circuits/cycle.yaml", ExitFailure, ErrCodeDefinitionCycle},
		{"unknown gate", "testdata/circuits/unknown_gate.yaml", ExitFailure, ErrCodeUnsupportedOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "compile", tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			resp, _ := decodeResponse[CompilationResult](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompile_UnwritableOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "missing-dir", "flat.yaml")
	_, err := execute(t, "compile", "testdata/circuits/flip.yaml", "-o", dest)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
