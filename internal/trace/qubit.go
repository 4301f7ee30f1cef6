package trace

import (
	"fmt"

	"github.com/roach88/qflow/internal/ir"
)

// Qubit is a handle to one qubit of a trace. The zero value belongs to no
// trace and every gate method on it fails with ContextViolation.
type Qubit struct {
	tracer *Tracer
	id     int
}

// ID returns the qubit's index in the traced circuit.
func (q Qubit) ID() int { return q.id }

// String implements fmt.Stringer.
func (q Qubit) String() string { return fmt.Sprintf("q%d", q.id) }

// owner returns the tracer every handle in qs shares, after checking it is
// the active one.
func owner(q Qubit, rest ...Qubit) (*Tracer, error) {
	if q.tracer == nil {
		return nil, fmt.Errorf("%s has no trace: %w", q, ir.ErrContextViolation)
	}
	if err := q.tracer.check(append([]Qubit{q}, rest...)...); err != nil {
		return nil, err
	}
	return q.tracer, nil
}

func (q Qubit) emit(op ir.Op, rest ...Qubit) error {
	t, err := owner(q, rest...)
	if err != nil {
		return err
	}
	return t.add(op)
}

// Hadamard applies H.
func (q Qubit) Hadamard() error { return q.emit(ir.Hadamard(q.id)) }

// PauliX flips the qubit.
func (q Qubit) PauliX() error { return q.emit(ir.PauliX(q.id)) }

// PauliY applies Y.
func (q Qubit) PauliY() error { return q.emit(ir.PauliY(q.id)) }

// PauliZ applies Z.
func (q Qubit) PauliZ() error { return q.emit(ir.PauliZ(q.id)) }

// Not records the single-operand NOT.
func (q Qubit) Not() error { return q.emit(ir.Not(q.id)) }

// Phase applies diag(1, e^{i·phi}).
func (q Qubit) Phase(phi float64) error { return q.emit(ir.Phase(q.id, phi)) }

// RotateX rotates about the X axis by theta.
func (q Qubit) RotateX(theta float64) error { return q.emit(ir.RotateX(q.id, theta)) }

// Cnot flips target when q is 1.
func (q Qubit) Cnot(target Qubit) error {
	return q.emit(ir.Cnot(q.id, target.id), target)
}

// Swap exchanges q and other.
func (q Qubit) Swap(other Qubit) error {
	return q.emit(ir.Swap(q.id, other.id), other)
}

// Toffoli flips target when q and c2 are both 1.
func (q Qubit) Toffoli(c2, target Qubit) error {
	return q.emit(ir.Toffoli(q.id, c2.id, target.id), c2, target)
}

// Measure records a measurement into the next free classical bit and
// returns that bit's index.
func (q Qubit) Measure() (int, error) {
	t, err := owner(q)
	if err != nil {
		return 0, err
	}
	bit := t.measurements
	if err := t.add(ir.Measure(q.id, bit)); err != nil {
		return 0, err
	}
	return bit, nil
}

// MeasureJoint measures every handle in one node. Handle i writes the i-th
// free classical bit. It returns the first bit written.
func MeasureJoint(qs ...Qubit) (int, error) {
	if len(qs) == 0 {
		return 0, ir.NewOperandError(ir.KindMeasure, "no qubits")
	}
	t, err := owner(qs[0], qs[1:]...)
	if err != nil {
		return 0, err
	}
	first := t.measurements
	sources := make([]int, len(qs))
	targets := make([]int, len(qs))
	for i, q := range qs {
		sources[i] = q.id
		targets[i] = first + i
	}
	if err := t.add(ir.MeasureJoint(sources, targets)); err != nil {
		return 0, err
	}
	return first, nil
}
