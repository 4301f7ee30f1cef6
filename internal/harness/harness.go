package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/qflow/internal/ir"
	"github.com/roach88/qflow/internal/loader"
	"github.com/roach88/qflow/internal/sim"
	"github.com/roach88/qflow/internal/store"
	"github.com/roach88/qflow/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion holds and the rerun matched.
	Pass bool `json:"pass"`

	// RunID is the fixed run ID the scenario ran under.
	RunID string `json:"run_id"`

	// CircuitID is the content hash of the loaded circuit.
	CircuitID string `json:"circuit_id"`

	// Histogram counts shots by register value, ordered by value.
	Histogram []store.Bucket `json:"histogram"`

	// Deterministic reports whether a sequential rerun with the same seed
	// reproduced every shot.
	Deterministic bool `json:"deterministic"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Histogram: []store.Bucket{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store with a fixed run ID
// and a deterministic clock, so the stored run is identical every time.
//
// Execution flow:
//  1. Load the circuit file
//  2. Simulate with the scenario's seed, shots and workers
//  3. Save the run and read back its histogram
//  4. Replay the stored run sequentially and compare every shot
//  5. Evaluate assertions against the histogram
//
// An error is returned only when the scenario cannot execute; failed
// assertions are reported in Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	source, err := os.ReadFile(scenario.Circuit)
	if err != nil {
		return nil, fmt.Errorf("read circuit: %w", err)
	}
	format, err := loader.FormatOf(scenario.Circuit)
	if err != nil {
		return nil, err
	}
	c, err := loader.Parse(source, format, scenario.Circuit)
	if err != nil {
		return nil, fmt.Errorf("load circuit: %w", err)
	}
	circuitID, err := ir.CircuitID(c)
	if err != nil {
		return nil, fmt.Errorf("hash circuit: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	machine := sim.New(
		sim.WithSeed(scenario.Seed),
		sim.WithWorkers(scenario.Workers),
		sim.WithRunIDGenerator(testutil.NewFixedRunIDGenerator("scenario-"+scenario.Name)),
	)
	res, err := machine.Execute(ctx, c, scenario.Shots)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	run := store.NewRun(res, circuitID, machine.Workers(), source, format.String())
	run.Started = testutil.NewDeterministicClock(time.Second).Now()
	run.Duration = 0
	if _, err := st.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = res.RunID
	result.CircuitID = circuitID

	if result.Histogram, err = st.Histogram(ctx, res.RunID); err != nil {
		return nil, err
	}

	replay, err := st.Replay(ctx, res.RunID, func(ctx context.Context, r store.Run) ([][]byte, error) {
		return sim.New(sim.WithSeed(r.Seed)).RunShots(ctx, c, r.ShotCount)
	})
	if err != nil {
		return nil, err
	}
	result.Deterministic = replay.Identical
	if !replay.Identical {
		result.AddError(fmt.Sprintf("rerun with seed %d differed in %d of %d shots",
			scenario.Seed, len(replay.Mismatches), replay.Shots))
	}

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result.Histogram); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"circuit", c.Name(),
		"shots", scenario.Shots,
		"pass", result.Pass)
	return result, nil
}
