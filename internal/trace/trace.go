// Package trace records circuits by running ordinary Go code.
//
// Run executes a function with a fresh Tracer. Qubits allocated from the
// tracer are handles that append ops to it; when the function returns, the
// recorded ops become an immutable ir.Circuit.
//
// At most one trace is active in the process at any instant. A second Run
// started while one is active fails immediately with ContextConflict rather
// than waiting. The active marker is cleared when Run returns, including
// when the traced function panics.
package trace

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/qflow/internal/ir"
)

// active holds the tracer of the running trace, or nil.
var active atomic.Pointer[Tracer]

// Tracer accumulates the nodes of one traced circuit.
//
// A Tracer is only valid inside the function passed to Run, and only on the
// goroutine that runs it. Handles outlive it but fail with ContextViolation.
type Tracer struct {
	name         string
	qubits       int
	measurements int
	nodes        []ir.Node
}

// Option configures a trace.
type Option func(*Tracer)

// WithName sets the display name of the traced circuit.
func WithName(name string) Option {
	return func(t *Tracer) {
		t.name = name
	}
}

// Run executes fn inside a new trace and returns the recorded circuit.
//
// Returns ContextConflict if another trace is active. If fn returns an
// error, Run returns it unchanged and no circuit.
func Run(fn func(t *Tracer) error, opts ...Option) (*ir.Circuit, error) {
	t := &Tracer{}
	for _, opt := range opts {
		opt(t)
	}

	if !active.CompareAndSwap(nil, t) {
		slog.Warn("trace rejected, another trace is active", "name", t.name)
		return nil, fmt.Errorf("start trace %q: %w", t.name, ir.ErrContextConflict)
	}
	defer active.CompareAndSwap(t, nil)

	if err := fn(t); err != nil {
		return nil, err
	}

	c, err := ir.NewCircuit(t.name, t.qubits, t.measurements, t.nodes)
	if err != nil {
		return nil, fmt.Errorf("finish trace %q: %w", t.name, err)
	}
	slog.Debug("trace finished",
		"name", c.Name(),
		"qubits", c.Qubits(),
		"cbits", c.Cbits(),
		"nodes", c.Len())
	return c, nil
}

// Active reports whether any trace is currently running.
func Active() bool {
	return active.Load() != nil
}

// NewQubit allocates the next qubit. Ids start at 0 and increase by one.
func (t *Tracer) NewQubit() Qubit {
	q := Qubit{tracer: t, id: t.qubits}
	t.qubits++
	return q
}

// NewQubits allocates n consecutive qubits.
func (t *Tracer) NewQubits(n int) []Qubit {
	qs := make([]Qubit, n)
	for i := range qs {
		qs[i] = t.NewQubit()
	}
	return qs
}

// Qubits returns the number of qubits allocated so far.
func (t *Tracer) Qubits() int { return t.qubits }

// Measurements returns the number of classical bits written so far.
func (t *Tracer) Measurements() int { return t.measurements }

// Apply embeds sub on the given handles. Inner qubit i is wired to qs[i];
// inner classical bits are wired to fresh bits after the ones already
// measured, in order.
func (t *Tracer) Apply(sub *ir.Circuit, qs ...Qubit) error {
	if err := t.check(qs...); err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("apply: %w", ir.NewMappingError("qubit", "nil inner circuit"))
	}
	qubitMap := make([]int, len(qs))
	for i, q := range qs {
		qubitMap[i] = q.id
	}
	cbitMap := make([]int, sub.Cbits())
	for i := range cbitMap {
		cbitMap[i] = t.measurements + i
	}
	node, err := ir.NewSubcircuit(sub, qubitMap, cbitMap)
	if err != nil {
		return fmt.Errorf("apply %s: %w", sub.Name(), err)
	}
	t.nodes = append(t.nodes, node)
	t.measurements += len(cbitMap)
	return nil
}

// check verifies that t is the active trace and that every handle was
// allocated by it.
func (t *Tracer) check(qs ...Qubit) error {
	if active.Load() != t {
		return fmt.Errorf("tracer used outside its trace: %w", ir.ErrContextViolation)
	}
	for _, q := range qs {
		if q.tracer != t {
			return &ir.Error{
				Code:    ir.CodeContextViolation,
				Message: fmt.Sprintf("qubit %d belongs to a different trace", q.id),
				Details: map[string]string{"qubit": fmt.Sprintf("%d", q.id)},
			}
		}
	}
	return nil
}

// add validates op and appends it. Measurements advance the bit counter by
// the op's arity.
func (t *Tracer) add(op ir.Op) error {
	if err := op.Validate(); err != nil {
		return err
	}
	t.nodes = append(t.nodes, op)
	if op.Kind == ir.KindMeasure {
		t.measurements += op.Arity()
	}
	return nil
}
