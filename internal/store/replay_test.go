package store

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/testutil"
)

func savedRun(t *testing.T, s *Store) Run {
	t.Helper()
	run := createTestRun("replayed", 4, testutil.NewDeterministicClock(time.Second))
	_, err := s.SaveRun(context.Background(), run)
	require.NoError(t, err)
	return run
}

func TestReplay_Identical(t *testing.T) {
	s := createTestStore(t)
	run := savedRun(t, s)

	var seen Run
	result, err := s.Replay(context.Background(), run.ID, func(_ context.Context, r Run) ([][]byte, error) {
		seen = r
		return slices.Clone(r.Shots), nil
	})
	require.NoError(t, err)

	assert.True(t, result.Identical)
	assert.Empty(t, result.Mismatches)
	assert.Equal(t, 4, result.Shots)
	assert.Equal(t, run.Source, seen.Source, "rerun receives the stored source")
	assert.Equal(t, run.Seed, seen.Seed)
}

func TestReplay_ReportsMismatches(t *testing.T) {
	s := createTestStore(t)
	run := savedRun(t, s)

	result, err := s.Replay(context.Background(), run.ID, func(_ context.Context, r Run) ([][]byte, error) {
		out := make([][]byte, len(r.Shots))
		for i := range out {
			out[i] = []byte{1, 1}
		}
		return out, nil
	})
	require.NoError(t, err)

	assert.False(t, result.Identical)
	assert.Equal(t, []int{0, 2}, result.Mismatches)
}

func TestReplay_Errors(t *testing.T) {
	s := createTestStore(t)
	run := savedRun(t, s)
	ctx := context.Background()

	_, err := s.Replay(ctx, "unknown", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	boom := errors.New("boom")
	_, err = s.Replay(ctx, run.ID, func(context.Context, Run) ([][]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = s.Replay(ctx, run.ID, func(context.Context, Run) ([][]byte, error) { return [][]byte{{0, 0}}, nil })
	assert.ErrorContains(t, err, "rerun produced 1 shots")
}
