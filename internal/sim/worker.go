package sim

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/ir"
	"github.com/roach88/qflow/internal/linalg"
)

// kernelKey identifies a full-register operator. Operators depend only on
// the gate, its operands, its angle and the register width.
type kernelKey struct {
	kind     ir.Kind
	operands [3]int
	angle    float64
}

// kernelCacheEntries caps the nonzero entries a worker keeps cached across
// all operators, about 32 MiB. An operator larger than the cap is built
// per use and never cached.
const kernelCacheEntries = 1 << 20

// worker executes shots of one circuit at a time. It implements flow.Sink
// and every optional sink interface.
//
// The state vector, its scratch twin and the classical register are
// allocated when the register width first changes and reset in place for
// every later shot. A worker is used by one goroutine at a time.
type worker struct {
	n         int
	state     *linalg.Ket
	scratch   *linalg.Ket
	classical []byte
	src       *rand.PCG
	rng       *rand.Rand
	kernels   map[kernelKey]*linalg.Operator
	cached    int // nonzero entries held by kernels
	budget    int // limit for cached
}

var (
	_ flow.Sink        = (*worker)(nil)
	_ flow.PauliYSink  = (*worker)(nil)
	_ flow.PauliZSink  = (*worker)(nil)
	_ flow.PhaseSink   = (*worker)(nil)
	_ flow.SwapSink    = (*worker)(nil)
	_ flow.ToffoliSink = (*worker)(nil)
)

func newWorker() *worker {
	src := rand.NewPCG(0, 0)
	return &worker{
		n:       -1,
		src:     src,
		rng:     rand.New(src),
		kernels: make(map[kernelKey]*linalg.Operator),
		budget:  kernelCacheEntries,
	}
}

// reset prepares the ground state |0…0⟩ for an n-qubit, cbits-bit shot and
// reseeds the random stream for (seed, shot).
func (w *worker) reset(n, cbits int, seed uint64, shot int) {
	dim := 1 << n
	if w.state == nil || w.state.Dim() != dim {
		w.state = linalg.NewKet(dim)
		w.scratch = linalg.NewKet(dim)
	} else {
		w.state.Zero()
	}
	if n != w.n {
		w.dropKernels()
		w.n = n
	}
	w.state.Set(0, 1)

	if cap(w.classical) >= cbits {
		w.classical = w.classical[:cbits]
		clear(w.classical)
	} else {
		w.classical = make([]byte, cbits)
	}

	w.src.Seed(seed, uint64(shot))
}

// shot runs ops once from the ground state and returns a copy of the
// classical register.
func (w *worker) shot(ops []ir.Op, n, cbits int, seed uint64, shot int) ([]byte, error) {
	w.reset(n, cbits, seed, shot)
	for _, op := range ops {
		if err := flow.Dispatch(w, op); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return slices.Clone(w.classical), nil
}

func (w *worker) checkQubits(k ir.Kind, qs ...int) error {
	for _, q := range qs {
		if q < 0 || q >= w.n {
			return fmt.Errorf("%s: %w", k, ir.NewIndexError("qubit", q, w.n))
		}
	}
	return nil
}

// apply looks up or builds the operator for key and applies it to the
// state. On failure the state is left as it was.
func (w *worker) apply(key kernelKey, build func() (*linalg.Operator, error)) error {
	op, ok := w.kernels[key]
	if !ok {
		var err error
		if op, err = build(); err != nil {
			return err
		}
		kernelBuilds.Inc()
		w.cache(key, op)
	}
	if err := op.ApplyInto(w.scratch, w.state); err != nil {
		return err
	}
	w.state, w.scratch = w.scratch, w.state
	gatesApplied.WithLabelValues(key.kind.String()).Inc()
	return nil
}

// cache keeps op for later shots. When op would push the cache past its
// budget the cache is emptied first.
func (w *worker) cache(key kernelKey, op *linalg.Operator) {
	nnz := op.NNZ()
	if nnz > w.budget {
		return
	}
	if w.cached+nnz > w.budget {
		w.dropKernels()
	}
	w.kernels[key] = op
	w.cached += nnz
}

func (w *worker) dropKernels() {
	clear(w.kernels)
	w.cached = 0
}

func (w *worker) single(k ir.Kind, q int, angle float64, kernel func() *linalg.Operator) error {
	if err := w.checkQubits(k, q); err != nil {
		return err
	}
	key := kernelKey{kind: k, operands: [3]int{q}, angle: angle}
	return w.apply(key, func() (*linalg.Operator, error) {
		return singleQubit(kernel(), q, w.n), nil
	})
}

func fixed(op *linalg.Operator) func() *linalg.Operator {
	return func() *linalg.Operator { return op }
}

func (w *worker) Hadamard(q int) error {
	return w.single(ir.KindHadamard, q, 0, fixed(kernelH))
}

func (w *worker) PauliX(q int) error {
	return w.single(ir.KindPauliX, q, 0, fixed(kernelX))
}

func (w *worker) PauliY(q int) error {
	return w.single(ir.KindPauliY, q, 0, fixed(kernelY))
}

func (w *worker) PauliZ(q int) error {
	return w.single(ir.KindPauliZ, q, 0, fixed(kernelZ))
}

func (w *worker) Phase(q int, phi float64) error {
	return w.single(ir.KindPhase, q, phi, func() *linalg.Operator { return phaseKernel(phi) })
}

func (w *worker) RotateX(q int, theta float64) error {
	return w.single(ir.KindRotateX, q, theta, func() *linalg.Operator { return rotateXKernel(theta) })
}

func (w *worker) Cnot(control, target int) error {
	if err := w.checkQubits(ir.KindCnot, control, target); err != nil {
		return err
	}
	key := kernelKey{kind: ir.KindCnot, operands: [3]int{control, target}}
	return w.apply(key, func() (*linalg.Operator, error) {
		return cnotOperator(control, target, w.n)
	})
}

func (w *worker) Swap(a, b int) error {
	if err := w.checkQubits(ir.KindSwap, a, b); err != nil {
		return err
	}
	key := kernelKey{kind: ir.KindSwap, operands: [3]int{a, b}}
	return w.apply(key, func() (*linalg.Operator, error) {
		return swapOperator(a, b, w.n)
	})
}

func (w *worker) Toffoli(c1, c2, target int) error {
	if err := w.checkQubits(ir.KindToffoli, c1, c2, target); err != nil {
		return err
	}
	key := kernelKey{kind: ir.KindToffoli, operands: [3]int{c1, c2, target}}
	return w.apply(key, func() (*linalg.Operator, error) {
		return toffoliOperator(c1, c2, target, w.n)
	})
}

// Measure samples source, collapses the state onto the outcome and writes
// it to classical bit target.
func (w *worker) Measure(source, target int) error {
	if err := w.checkQubits(ir.KindMeasure, source); err != nil {
		return err
	}
	if target < 0 || target >= len(w.classical) {
		return fmt.Errorf("%s: %w", ir.KindMeasure, ir.NewIndexError("cbit", target, len(w.classical)))
	}

	amps := w.state.Amplitudes()
	var p1 float64
	for i := range amps {
		if BitOf(i, source, w.n) == 1 {
			p1 += w.state.Probability(i)
		}
	}
	p1 = min(max(p1, 0), 1)

	outcome := 0
	if w.rng.Float64() < p1 {
		outcome = 1
	}
	for i := range amps {
		if BitOf(i, source, w.n) != outcome {
			amps[i] = 0
		}
	}
	w.state.Normalize()

	w.classical[target] = byte(outcome)
	measurementOutcomes.WithLabelValues(fmt.Sprint(outcome)).Inc()
	return nil
}
