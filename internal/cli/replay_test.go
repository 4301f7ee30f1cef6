package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/store"
	"github.com/roach88/qflow/internal/testutil"
)

// storeRun runs circuit into db and returns the run ID.
func storeRun(t *testing.T, db, circuit string, args ...string) string {
	t.Helper()
	argv := append([]string{"--format", "json", "run", circuit, "--db", db}, args...)
	out, err := execute(t, argv...)
	require.NoError(t, err)
	_, result := decodeResponse[RunResult](t, out)
	return result.RunID
}

func TestReplay_SingleRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	id := storeRun(t, db, "testdata/circuits/bell.yaml", "--shots", "64", "--seed", "17", "--workers", "3")

	out, err := execute(t, "--format", "json", "replay", id, "--db", db)
	require.NoError(t, err)

	resp, result := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.AllDeterministic)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, id, result.Runs[0].RunID)
	assert.Equal(t, "bell", result.Runs[0].Circuit)
	assert.Equal(t, uint64(17), result.Runs[0].Seed)
	assert.Equal(t, 64, result.Runs[0].Shots)
	assert.Empty(t, result.Runs[0].Mismatches)
	assert.False(t, result.Runs[0].CircuitChanged)
}

func TestReplay_AllRunsText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	first := storeRun(t, db, "testdata/circuits/flip.yaml", "--shots", "5")
	second := storeRun(t, db, "testdata/circuits/nested.yml", "--shots", "5")

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 2 run(s)")
	assert.Contains(t, out, "✓ All runs verified deterministic")
	assert.Less(t, strings.Index(out, first), strings.Index(out, second), "oldest run first")
}

func TestReplay_DetectsTamperedShots(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	source, err := os.ReadFile("testdata/circuits/flip.yaml")
	require.NoError(t, err)
	cf, err := LoadCircuitFile("testdata/circuits/flip.yaml")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.SaveRun(context.Background(), store.Run{
		ID:          "tampered",
		CircuitID:   cf.ID,
		CircuitName: "flip",
		Qubits:      2,
		Cbits:       2,
		Seed:        1,
		Workers:     1,
		Source:      string(source),
		Format:      "yaml",
		Started:     testutil.Epoch,
		Duration:    time.Millisecond,
		Shots:       [][]byte{{1, 1}, {0, 0}, {1, 1}, {0, 1}},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "--format", "json", "replay", "tampered", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, result := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeNondeterministic, resp.Error.Code)
	assert.False(t, result.AllDeterministic)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, []int{1, 3}, result.Runs[0].Mismatches)
}

func TestReplay_DetectsChangedCircuit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	source, err := os.ReadFile("testdata/circuits/flip.yaml")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.SaveRun(context.Background(), store.Run{
		ID:          "stale",
		CircuitID:   "not-the-hash-of-flip",
		CircuitName: "flip",
		Qubits:      2,
		Cbits:       2,
		Seed:        1,
		Source:      string(source),
		Format:      "yaml",
		Started:     testutil.Epoch,
		Shots:       [][]byte{{1, 1}},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "stale", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no longer builds the stored circuit")
}

func TestReplay_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestReplay_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	storeRun(t, db, "testdata/circuits/flip.yaml", "--shots", "1")

	t.Run("unknown run", func(t *testing.T) {
		out, err := execute(t, "--format", "json", "replay", "nope", "--db", db)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		resp, _ := decodeResponse[ReplayResult](t, out)
		assert.Equal(t, ErrCodeRunNotFound, resp.Error.Code)
	})

	t.Run("missing database", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent.db")
		_, err := execute(t, "replay", "--db", missing)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.NoFileExists(t, missing, "replay must not create a database")
	})
}
