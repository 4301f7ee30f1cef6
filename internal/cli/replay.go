package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/loader"
	"github.com/roach88/qflow/internal/sim"
	"github.com/roach88/qflow/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID          string `json:"run_id"`
	Circuit        string `json:"circuit"`
	Seed           uint64 `json:"seed"`
	Shots          int    `json:"shots"`
	Mismatches     []int  `json:"mismatches,omitempty"`
	CircuitChanged bool   `json:"circuit_changed,omitempty"` // stored source no longer hashes to the stored ID
	Deterministic  bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-simulate stored runs and verify determinism",
		Long: `Re-simulate stored runs from their stored circuit source and seed, and
compare every shot against the stored shots.

Without a run ID every run in the database is replayed.

Exit codes:
  0 - All replayed runs are identical
  1 - Determinism verification failed (a shot differed)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  qflow replay --db ./runs.db
  qflow replay 0190c5b2-7f7e-7c1a-9a5e-3b1f0c2d4e5f --db ./runs.db
  qflow replay --db ./runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReplay(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if runID != "" {
		ids = []string{runID}
	} else {
		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		// Oldest first, so output follows the order runs were stored.
		for i := len(runs) - 1; i >= 0; i-- {
			ids = append(ids, runs[i].ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}

	for _, id := range ids {
		formatter.VerboseLog("Replaying run %s", id)
		runResult, err := replayRun(ctx, st, id)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", id), nil)
				return WrapExitError(ExitCommandError, "run not found", err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun rebuilds the stored circuit and re-simulates it with the stored
// seed and worker count.
func replayRun(ctx context.Context, st *store.Store, id string) (ReplayRunResult, error) {
	out := ReplayRunResult{RunID: id}

	replay, err := st.Replay(ctx, id, func(ctx context.Context, run store.Run) ([][]byte, error) {
		out.Circuit = run.CircuitName
		out.Seed = run.Seed

		format, err := loader.ParseFormat(run.Format)
		if err != nil {
			return nil, err
		}
		cf, err := LoadCircuitSource(run.CircuitName+"."+format.String(), []byte(run.Source), format)
		if err != nil {
			return nil, err
		}
		out.CircuitChanged = cf.ID != run.CircuitID

		machine := sim.New(sim.WithSeed(run.Seed), sim.WithWorkers(run.Workers))
		return machine.RunShots(ctx, cf.Circuit, run.ShotCount)
	})
	if err != nil {
		return ReplayRunResult{}, err
	}

	out.Shots = replay.Shots
	out.Mismatches = replay.Mismatches
	out.Deterministic = replay.Identical && !out.CircuitChanged
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeNondeterministic,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  %s: %d shots, seed %d\n", run.Circuit, run.Shots, run.Seed)

		if run.CircuitChanged {
			fmt.Fprintln(w, "  Warning: stored source no longer builds the stored circuit")
		}
		if len(run.Mismatches) > 0 {
			fmt.Fprintf(w, "  Warning: %d shot(s) differ, first at shot %d\n", len(run.Mismatches), run.Mismatches[0])
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
