package store

import (
	"bytes"
	"context"
	"fmt"
)

// RerunFunc re-executes a stored run and returns its shots. It receives the
// stored run with shots loaded.
type RerunFunc func(ctx context.Context, run Run) ([][]byte, error)

// ReplayResult compares a stored run against a re-execution.
type ReplayResult struct {
	RunID      string `json:"run_id"`
	Shots      int    `json:"shots"`
	Mismatches []int  `json:"mismatches,omitempty"` // shot indices that differ
	Identical  bool   `json:"identical"`
}

// Replay loads run id, re-executes it with rerun and reports every shot
// whose register differs from the stored one. A rerun returning a different
// shot count is an error, not a mismatch.
func (s *Store) Replay(ctx context.Context, id string, rerun RerunFunc) (ReplayResult, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	got, err := rerun(ctx, run)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", id, err)
	}
	if len(got) != len(run.Shots) {
		return ReplayResult{}, fmt.Errorf("replay %s: rerun produced %d shots, stored %d", id, len(got), len(run.Shots))
	}

	result := ReplayResult{RunID: id, Shots: len(got)}
	for i := range got {
		if !bytes.Equal(got[i], run.Shots[i]) {
			result.Mismatches = append(result.Mismatches, i)
		}
	}
	result.Identical = len(result.Mismatches) == 0
	return result, nil
}
