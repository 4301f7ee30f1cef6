package sim

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/ir"
)

// ErrNilCircuit is returned when a run is given no circuit.
var ErrNilCircuit = errors.New("sim: nil circuit")

// DefaultMaxQubits bounds the register width a Simulator accepts.
// The state vector holds 2^n complex128 amplitudes.
const DefaultMaxQubits = 20

// Machine executes circuits and returns classical registers.
type Machine interface {
	// Run executes one shot and returns its classical register.
	Run(ctx context.Context, c *ir.Circuit) ([]byte, error)

	// RunShots executes shots independent shots, one row per shot in
	// shot order.
	RunShots(ctx context.Context, c *ir.Circuit, shots int) ([][]byte, error)
}

// Simulator is a state-vector Machine.
//
// Shot i draws from a PCG stream seeded with (seed, i), so a Simulator
// with a fixed seed returns identical bytes on every run of the same
// circuit, whether shots execute sequentially or in parallel. Without
// WithSeed every run draws a fresh seed and reports it in Result.Seed.
//
// Thread-safety: Simulator is safe for concurrent use. Each run borrows
// private workers; circuits are read-only and shared freely.
type Simulator struct {
	seed      uint64
	seeded    bool
	workers   int
	maxQubits int
	ids       RunIDGenerator
	pool      sync.Pool
}

var _ Machine = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed fixes the random seed.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.seed = seed
		s.seeded = true
	}
}

// WithWorkers sets how many goroutines execute shots. Values below 1 are
// treated as 1, which runs shots sequentially on one reused worker.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		s.workers = max(n, 1)
	}
}

// WithMaxQubits overrides DefaultMaxQubits.
func WithMaxQubits(n int) Option {
	return func(s *Simulator) {
		s.maxQubits = n
	}
}

// WithRunIDGenerator sets the generator for Result.RunID.
//
// Default: UUIDv7Generator
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Simulator) {
		s.ids = g
	}
}

// New creates a Simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		workers:   1,
		maxQubits: DefaultMaxQubits,
		ids:       UUIDv7Generator{},
	}
	s.pool.New = func() any { return newWorker() }

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomSeed() uint64 {
	var b [8]byte
	_, _ = cryptorand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Seed returns the fixed seed. ok is false when each run draws its own
// seed from crypto/rand.
func (s *Simulator) Seed() (seed uint64, ok bool) { return s.seed, s.seeded }

// runSeed returns the seed for one run.
func (s *Simulator) runSeed() uint64 {
	if s.seeded {
		return s.seed
	}
	return randomSeed()
}

// Workers returns the configured shot parallelism.
func (s *Simulator) Workers() int { return s.workers }

// Result is the outcome of Execute.
type Result struct {
	RunID    string
	Circuit  string
	Qubits   int
	Cbits    int
	Seed     uint64
	Shots    [][]byte
	Started  time.Time
	Duration time.Duration
}

// Counts tallies shots by their bit string (see FormatBits).
func (r *Result) Counts() map[string]int {
	counts := make(map[string]int)
	for _, shot := range r.Shots {
		counts[FormatBits(shot)]++
	}
	return counts
}

// FormatBits renders a classical register as '0'/'1' characters, bit 0
// first.
func FormatBits(bits []byte) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		sb.WriteByte('0' + b)
	}
	return sb.String()
}

// Run executes c once.
func (s *Simulator) Run(ctx context.Context, c *ir.Circuit) ([]byte, error) {
	shots, err := s.RunShots(ctx, c, 1)
	if err != nil {
		return nil, err
	}
	return shots[0], nil
}

// RunShots executes c shots times.
func (s *Simulator) RunShots(ctx context.Context, c *ir.Circuit, shots int) ([][]byte, error) {
	r, err := s.Execute(ctx, c, shots)
	if err != nil {
		return nil, err
	}
	return r.Shots, nil
}

// Execute runs c shots times and returns the registers with run metadata.
//
// The circuit is flattened once; every shot then replays the flat op list
// from the ground state. The first failing shot aborts the run and its
// error is returned. Context cancellation is checked between shots.
func (s *Simulator) Execute(ctx context.Context, c *ir.Circuit, shots int) (result *Result, err error) {
	if c == nil {
		return nil, ErrNilCircuit
	}
	ctx, span := otel.Tracer("sim").Start(ctx, "sim.Simulator.Execute",
		trace.WithAttributes(
			attribute.String("circuit", c.Name()),
			attribute.Int("qubits", c.Qubits()),
			attribute.Int("cbits", c.Cbits()),
			attribute.Int("shots", shots),
			attribute.Int("workers", s.workers),
		),
	)
	defer span.End()

	started := time.Now()
	defer func() {
		label := "success"
		if err != nil {
			label = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		runDuration.WithLabelValues(label).Observe(time.Since(started).Seconds())
	}()

	if shots < 0 {
		return nil, ir.NewIndexError("shots", shots, -1)
	}
	if c.Qubits() > s.maxQubits {
		return nil, fmt.Errorf("simulate %s: %w", c.Name(), ir.NewIndexError("qubit register", c.Qubits(), s.maxQubits))
	}

	ops, err := flow.Flatten(c)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", c.Name(), err)
	}

	runID := s.ids.Generate()
	seed := s.runSeed()
	span.SetAttributes(attribute.Int64("seed", int64(seed)))
	slog.Debug("simulation started",
		"run", runID,
		"circuit", c.Name(),
		"qubits", c.Qubits(),
		"ops", len(ops),
		"shots", shots,
		"seed", seed,
		"workers", s.workers)

	results := make([][]byte, shots)
	if s.workers > 1 && shots > 1 {
		err = s.parallel(ctx, c, ops, seed, results)
	} else {
		err = s.sequential(ctx, c, ops, seed, results)
	}
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", c.Name(), err)
	}

	result = &Result{
		RunID:    runID,
		Circuit:  c.Name(),
		Qubits:   c.Qubits(),
		Cbits:    c.Cbits(),
		Seed:     seed,
		Shots:    results,
		Started:  started,
		Duration: time.Since(started),
	}
	span.SetAttributes(attribute.String("run_id", runID))
	slog.Debug("simulation finished",
		"run", runID,
		"circuit", c.Name(),
		"shots", shots,
		"duration", result.Duration)
	return result, nil
}

func (s *Simulator) acquire() *worker { return s.pool.Get().(*worker) }

func (s *Simulator) release(w *worker) { s.pool.Put(w) }

func (s *Simulator) sequential(ctx context.Context, c *ir.Circuit, ops []ir.Op, seed uint64, results [][]byte) error {
	w := s.acquire()
	defer s.release(w)

	for i := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := w.shot(ops, c.Qubits(), c.Cbits(), seed, i)
		if err != nil {
			return fmt.Errorf("shot %d: %w", i, err)
		}
		results[i] = out
		shotsTotal.Inc()
	}
	return nil
}

// parallel hands out shot indices from a shared counter to s.workers
// goroutines, each with its own worker. Every shot writes only its own row.
func (s *Simulator) parallel(ctx context.Context, c *ir.Circuit, ops []ir.Op, seed uint64, results [][]byte) error {
	g, gctx := errgroup.WithContext(ctx)
	var next atomic.Int64

	for range min(s.workers, len(results)) {
		g.Go(func() error {
			w := s.acquire()
			defer s.release(w)

			for {
				i := int(next.Add(1) - 1)
				if i >= len(results) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := w.shot(ops, c.Qubits(), c.Cbits(), seed, i)
				if err != nil {
					return fmt.Errorf("shot %d: %w", i, err)
				}
				results[i] = out
				shotsTotal.Inc()
			}
		})
	}
	return g.Wait()
}
