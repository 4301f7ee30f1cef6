package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Circuit  string // optional - only runs of this circuit ID
}

// RunSummary describes a stored run without its shots.
type RunSummary struct {
	Seq        int64     `json:"seq"`
	RunID      string    `json:"run_id"`
	Circuit    string    `json:"circuit"`
	CircuitID  string    `json:"circuit_id"`
	Qubits     int       `json:"qubits"`
	Cbits      int       `json:"cbits"`
	Seed       uint64    `json:"seed"`
	Shots      int       `json:"shots"`
	Workers    int       `json:"workers"`
	Started    time.Time `json:"started"`
	DurationMS float64   `json:"duration_ms"`
}

// RunDetail is a stored run with its outcome histogram.
type RunDetail struct {
	RunSummary
	Histogram []store.Bucket `json:"histogram"`
}

// HistoryResult lists stored runs, newest first.
type HistoryResult struct {
	Runs []RunSummary `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored runs or show one run's histogram",
		Long: `Query the run database.

Without a run ID, lists stored runs newest first. With a run ID, shows the
run's parameters and the histogram of its stored shots.

Examples:
  qflow history --db ./runs.db
  qflow history --db ./runs.db --limit 5
  qflow history --db ./runs.db --circuit 3f9a...
  qflow history 0190c5b2-7f7e-7c1a-9a5e-3b1f0c2d4e5f --db ./runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowRun(opts, args[0], cmd)
			}
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Circuit, "circuit", "", "only list runs of this circuit ID")

	return cmd
}

// openExistingStore opens the database at path, which must already exist.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.Circuit != "" {
		runs, err = st.ListRunsForCircuit(ctx, opts.Circuit, opts.Limit)
	} else {
		runs, err = st.ListRuns(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := HistoryResult{Runs: make([]RunSummary, len(runs))}
	for i, r := range runs {
		result.Runs[i] = summarize(r)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "%-5s  %-36s  %-16s  %8s  %20s  %s\n", "SEQ", "RUN", "CIRCUIT", "SHOTS", "SEED", "STARTED")
	for _, r := range result.Runs {
		fmt.Fprintf(w, "%-5d  %-36s  %-16s  %8d  %20d  %s\n",
			r.Seq, r.RunID, r.Circuit, r.Shots, r.Seed, r.Started.UTC().Format(time.RFC3339))
	}
	return nil
}

func runShowRun(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	hist, err := st.Histogram(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read histogram", err)
	}

	detail := RunDetail{RunSummary: summarize(run), Histogram: hist}
	if formatter.JSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: detail, RunID: runID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", detail.RunID, detail.Seq)
	fmt.Fprintf(w, "  circuit  %s (%d qubits, %d cbits)\n", detail.Circuit, detail.Qubits, detail.Cbits)
	fmt.Fprintf(w, "  id       %s\n", detail.CircuitID)
	fmt.Fprintf(w, "  seed     %d\n", detail.Seed)
	fmt.Fprintf(w, "  shots    %d on %d worker(s)\n", detail.Shots, detail.Workers)
	fmt.Fprintf(w, "  started  %s (%.3f ms)\n\n", detail.Started.UTC().Format(time.RFC3339Nano), detail.DurationMS)
	writeHistogram(w, detail.Histogram)
	return nil
}

// summarize drops a run's shots and source.
func summarize(r store.Run) RunSummary {
	return RunSummary{
		Seq:        r.Seq,
		RunID:      r.ID,
		Circuit:    r.CircuitName,
		CircuitID:  r.CircuitID,
		Qubits:     r.Qubits,
		Cbits:      r.Cbits,
		Seed:       r.Seed,
		Shots:      r.ShotCount,
		Workers:    r.Workers,
		Started:    r.Started,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
	}
}
