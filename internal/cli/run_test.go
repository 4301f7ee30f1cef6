package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/sim"
	"github.com/roach88/qflow/internal/store"
)

func TestRun_DeterministicCircuit(t *testing.T) {
	out, err := execute(t, "--format", "json", "run", "testdata/circuits/flip.yaml", "--shots", "50", "--seed", "1")
	require.NoError(t, err)

	resp, result := decodeResponse[RunResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, result.RunID, resp.RunID)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "flip", result.Circuit)
	assert.Equal(t, uint64(1), result.Seed)
	assert.Equal(t, 50, result.Shots)
	assert.Equal(t, 1, result.Workers)
	assert.Zero(t, result.Seq, "nothing stored without --db")
	assert.Equal(t, []store.Bucket{{Bits: "11", Count: 50}}, result.Histogram)
}

func TestRun_SeedFixesHistogramAcrossWorkers(t *testing.T) {
	run := func(workers string) []store.Bucket {
		out, err := execute(t, "--format", "json", "run", "testdata/circuits/bell.yaml",
			"--shots", "300", "--seed", "5", "--workers", workers)
		require.NoError(t, err)
		_, result := decodeResponse[RunResult](t, out)
		return result.Histogram
	}

	sequential := run("1")
	assert.Equal(t, sequential, run("4"))
	assert.Equal(t, sequential, run("1"))

	total := 0
	for _, b := range sequential {
		assert.Contains(t, []string{"00", "11"}, b.Bits)
		total += b.Count
	}
	assert.Equal(t, 300, total)
}

func TestRun_TextOutput(t *testing.T) {
	out, err := execute(t, "run", "testdata/circuits/flip.yaml", "--shots", "8", "--seed", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ flip: 8 shots, seed 2, 1 worker(s)\n")
	assert.Contains(t, out, "  11       8  100.0%  ")
	assert.NotContains(t, out, "Stored as")
}

func TestRun_StoresRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	for i, want := range []int64{1, 2} {
		out, err := execute(t, "--format", "json", "run", "testdata/circuits/flip.yaml", "--shots", "4", "--db", db)
		require.NoError(t, err, "run %d", i)
		_, result := decodeResponse[RunResult](t, out)
		assert.Equal(t, want, result.Seq)
	}

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "yaml", runs[0].Format)
	assert.Contains(t, runs[0].Source, "name: flip")
	assert.Equal(t, 4, runs[0].ShotCount)
}

func TestRun_FixedRunID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	buf := &bytes.Buffer{}

	cmd := newRunCommand(&RunOptions{
		RootOptions:    &RootOptions{Format: "text"},
		RunIDGenerator: sim.NewFixedGenerator("run-fixed"),
	})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"testdata/circuits/flip.yaml", "--shots", "2", "--seed", "9", "--db", db})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "run run-fixed")
	assert.Contains(t, buf.String(), "Stored as seq 1 in "+db)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		exit int
	}{
		{"missing file", []string{"run", "testdata/circuits/absent.yaml"}, ExitCommandError},
		{"invalid circuit", []string{"run", "testdata/circuits/cycle.yaml"}, ExitCommandError},
		{"zero shots", []string{"run", "testdata/circuits/flip.yaml", "--shots", "0"}, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
		})
	}
}
