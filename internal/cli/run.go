package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/qflow/internal/sim"
	"github.com/roach88/qflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Shots    int
	Seed     uint64
	Workers  int

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to sim.UUIDv7Generator.
	RunIDGenerator sim.RunIDGenerator
}

// RunResult describes one simulation run.
type RunResult struct {
	RunID      string         `json:"run_id"`
	Circuit    string         `json:"circuit"`
	CircuitID  string         `json:"circuit_id"`
	Seed       uint64         `json:"seed"`
	Shots      int            `json:"shots"`
	Workers    int            `json:"workers"`
	Seq        int64          `json:"seq,omitempty"` // set when stored
	Histogram  []store.Bucket `json:"histogram"`
	DurationMS float64        `json:"duration_ms"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <circuit-file>",
		Short: "Simulate a circuit and print the outcome histogram",
		Long: `Simulate a circuit file for a number of shots and print how often each
classical register value occurred.

Shots are independent: shot i draws from a random stream derived from the
seed and i alone, so a run is reproducible from its seed whatever the
worker count. Without --seed a random seed is chosen and printed.

With --db the run, its circuit source and every shot are stored in SQLite
(created if missing) for later replay and history queries.

Examples:
  qflow run ./circuits/bell.yaml --shots 1000
  qflow run ./circuits/ghz.cue --shots 10000 --workers 8 --seed 42 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to store the run in")
	cmd.Flags().IntVar(&opts.Shots, "shots", 1024, "number of shots")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: random)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of goroutines executing shots")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	if opts.Shots <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--shots must be positive, got %d", opts.Shots))
	}

	cf, err := LoadCircuitFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load circuit", err)
	}

	simOpts := []sim.Option{sim.WithWorkers(opts.Workers)}
	if cmd.Flags().Changed("seed") {
		simOpts = append(simOpts, sim.WithSeed(opts.Seed))
	}
	if opts.RunIDGenerator != nil {
		simOpts = append(simOpts, sim.WithRunIDGenerator(opts.RunIDGenerator))
	}
	machine := sim.New(simOpts...)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	slog.Debug("simulating", "circuit", cf.Circuit.Name(), "shots", opts.Shots, "workers", machine.Workers())
	res, err := machine.Execute(ctx, cf.Circuit, opts.Shots)
	if err != nil {
		_ = formatter.Error(ErrCodeSimulation, err.Error(), nil)
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	result := RunResult{
		RunID:      res.RunID,
		Circuit:    res.Circuit,
		CircuitID:  cf.ID,
		Seed:       res.Seed,
		Shots:      len(res.Shots),
		Workers:    machine.Workers(),
		Histogram:  histogramOf(res.Counts()),
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	}

	if opts.Database != "" {
		seq, err := saveRun(ctx, opts.Database, store.NewRun(res, cf.ID, machine.Workers(), cf.Source, cf.Format.String()))
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return err
		}
		result.Seq = seq
		formatter.VerboseLog("Stored run %s as seq %d in %s", res.RunID, seq, opts.Database)
	}

	return outputRunResult(formatter, result, opts.Database)
}

// signalContext returns the command context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// saveRun stores run in the database at path.
func saveRun(ctx context.Context, path string, run store.Run) (int64, error) {
	st, err := store.Open(path)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	seq, err := st.SaveRun(ctx, run)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "failed to store run", err)
	}
	return seq, nil
}

// histogramOf converts shot counts to buckets ordered by register value.
func histogramOf(counts map[string]int) []store.Bucket {
	hist := make([]store.Bucket, 0, len(counts))
	for bits, n := range counts {
		hist = append(hist, store.Bucket{Bits: bits, Count: n})
	}
	slices.SortFunc(hist, func(a, b store.Bucket) int { return strings.Compare(a.Bits, b.Bits) })
	return hist
}

// outputRunResult prints the run summary and histogram.
func outputRunResult(formatter *OutputFormatter, result RunResult, database string) error {
	if formatter.JSON() {
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d shots, seed %d, %d worker(s)\n", result.Circuit, result.Shots, result.Seed, result.Workers)
	fmt.Fprintf(w, "  run %s\n\n", result.RunID)
	writeHistogram(w, result.Histogram)
	if database != "" {
		fmt.Fprintf(w, "\nStored as seq %d in %s\n", result.Seq, database)
	}
	return nil
}
