// Package builder constructs circuits by register index.
//
// A Builder either grows its registers to fit whatever index it is given
// (flexible, the default) or rejects indices outside sizes declared up
// front (fixed). In both modes a failed call leaves the builder exactly as
// it was: no node is appended and no register grows.
package builder

import (
	"fmt"

	"github.com/roach88/qflow/internal/ir"
)

// Builder accumulates nodes for one circuit. It is not safe for concurrent use.
type Builder struct {
	name   string
	qubits int
	cbits  int
	fixed  bool
	nodes  []ir.Node
}

// Option configures a Builder.
type Option func(*Builder)

// WithName sets the circuit display name.
func WithName(name string) Option {
	return func(b *Builder) {
		b.name = name
	}
}

// New creates a Builder with flexible registers. Touching qubit q grows the
// quantum register to at least q+1, and likewise for classical bits.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFixed creates a Builder whose registers are exactly qubits and cbits
// wide. Any index outside them fails with IndexOutOfRange.
func NewFixed(qubits, cbits int, opts ...Option) (*Builder, error) {
	if qubits < 0 {
		return nil, ir.NewIndexError("qubit register", qubits, -1)
	}
	if cbits < 0 {
		return nil, ir.NewIndexError("cbit register", cbits, -1)
	}
	b := New(opts...)
	b.qubits = qubits
	b.cbits = cbits
	b.fixed = true
	return b, nil
}

// SetName sets the circuit display name.
func (b *Builder) SetName(name string) {
	b.name = name
}

// Qubits returns the current quantum register size.
func (b *Builder) Qubits() int { return b.qubits }

// Cbits returns the current classical register size.
func (b *Builder) Cbits() int { return b.cbits }

// Fixed reports whether the registers are fixed.
func (b *Builder) Fixed() bool { return b.fixed }

// Len returns the number of nodes added so far.
func (b *Builder) Len() int { return len(b.nodes) }

// check validates indices against the register discipline and returns the
// register sizes the builder would have after accepting them.
func (b *Builder) check(register string, indices []int, size int) (int, error) {
	grown := size
	for _, i := range indices {
		if i < 0 {
			return size, ir.NewIndexError(register, i, -1)
		}
		if i >= size {
			if b.fixed {
				return size, ir.NewIndexError(register, i, size)
			}
			grown = max(grown, i+1)
		}
	}
	return grown, nil
}

// Add appends op after validating its shape and indices.
func (b *Builder) Add(op ir.Op) error {
	if err := op.Validate(); err != nil {
		return err
	}
	qubits, err := b.check("qubit", op.Operands, b.qubits)
	if err != nil {
		return err
	}
	cbits, err := b.check("cbit", op.Targets, b.cbits)
	if err != nil {
		return err
	}
	b.qubits, b.cbits = qubits, cbits
	b.nodes = append(b.nodes, op)
	return nil
}

// addEach appends one single-qubit op per index, stopping at the first
// failure. Ops appended before the failure stay.
func (b *Builder) addEach(mk func(int) ir.Op, qubits []int) error {
	for _, q := range qubits {
		if err := b.Add(mk(q)); err != nil {
			return err
		}
	}
	return nil
}

// Hadamard appends a Hadamard gate on each qubit, in order.
func (b *Builder) Hadamard(qubits ...int) error { return b.addEach(ir.Hadamard, qubits) }

// PauliX appends a bit flip on each qubit, in order.
func (b *Builder) PauliX(qubits ...int) error { return b.addEach(ir.PauliX, qubits) }

// PauliY appends a Pauli-Y gate on each qubit, in order.
func (b *Builder) PauliY(qubits ...int) error { return b.addEach(ir.PauliY, qubits) }

// PauliZ appends a phase flip on each qubit, in order.
func (b *Builder) PauliZ(qubits ...int) error { return b.addEach(ir.PauliZ, qubits) }

// Phase appends diag(1, e^{i·phi}) on qubit.
func (b *Builder) Phase(qubit int, phi float64) error { return b.Add(ir.Phase(qubit, phi)) }

// RotateX appends an X rotation by theta on qubit.
func (b *Builder) RotateX(qubit int, theta float64) error { return b.Add(ir.RotateX(qubit, theta)) }

// Swap exchanges two qubits.
func (b *Builder) Swap(q1, q2 int) error { return b.Add(ir.Swap(q1, q2)) }

// Not appends the single-operand NOT.
func (b *Builder) Not(qubit int) error { return b.Add(ir.Not(qubit)) }

// Cnot appends a controlled NOT.
func (b *Builder) Cnot(control, target int) error { return b.Add(ir.Cnot(control, target)) }

// Toffoli appends a doubly-controlled NOT.
func (b *Builder) Toffoli(c1, c2, target int) error { return b.Add(ir.Toffoli(c1, c2, target)) }

// Measure measures source into classical bit target.
func (b *Builder) Measure(source, target int) error { return b.Add(ir.Measure(source, target)) }

// MeasureJoint measures sources[i] into targets[i] as a single node.
func (b *Builder) MeasureJoint(sources, targets []int) error {
	return b.Add(ir.MeasureJoint(sources, targets))
}

// Apply embeds sub, wiring its qubit i to qubits[i] and its bit j to cbits[j].
//
// The mapping is validated (InvalidSubcircuitMapping) before register bounds
// (IndexOutOfRange); on either failure nothing is attached.
func (b *Builder) Apply(sub *ir.Circuit, qubits, cbits []int) error {
	node, err := ir.NewSubcircuit(sub, qubits, cbits)
	if err != nil {
		return fmt.Errorf("apply %s: %w", circuitName(sub), err)
	}
	nq, err := b.check("qubit", qubits, b.qubits)
	if err != nil {
		return fmt.Errorf("apply %s: %w", sub.Name(), err)
	}
	nc, err := b.check("cbit", cbits, b.cbits)
	if err != nil {
		return fmt.Errorf("apply %s: %w", sub.Name(), err)
	}
	b.qubits, b.cbits = nq, nc
	b.nodes = append(b.nodes, node)
	return nil
}

func circuitName(c *ir.Circuit) string {
	if c == nil {
		return "<nil>"
	}
	return c.Name()
}

// Circuit finalizes the builder into an immutable circuit. The builder may
// keep being used; later calls do not affect circuits already returned.
func (b *Builder) Circuit() (*ir.Circuit, error) {
	return ir.NewCircuit(b.name, b.qubits, b.cbits, b.nodes)
}
