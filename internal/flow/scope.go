package flow

import "github.com/roach88/qflow/internal/ir"

// Scope translates register indices of the circuit currently being walked
// into indices of the outermost circuit.
//
// The zero Scope is the identity used at top level. Scopes are values:
// Compose returns a new one and never modifies its receiver, so a scope can
// be handed down a recursion without a shared stack.
type Scope struct {
	qubits []int
	cbits  []int
	nested bool
}

// Compose returns the scope of sub's inner circuit: inner index i maps to
// s.Qubit(sub.QubitAt(i)), and likewise for classical bits.
func (s Scope) Compose(sub *ir.Subcircuit) Scope {
	inner := sub.Circuit()
	out := Scope{
		qubits: make([]int, inner.Qubits()),
		cbits:  make([]int, inner.Cbits()),
		nested: true,
	}
	for i := range out.qubits {
		out.qubits[i] = s.Qubit(sub.QubitAt(i))
	}
	for i := range out.cbits {
		out.cbits[i] = s.Cbit(sub.CbitAt(i))
	}
	return out
}

// Qubit translates a qubit index.
func (s Scope) Qubit(i int) int {
	if !s.nested {
		return i
	}
	return s.qubits[i]
}

// Cbit translates a classical bit index.
func (s Scope) Cbit(i int) int {
	if !s.nested {
		return i
	}
	return s.cbits[i]
}

// Identity reports whether s is the top-level scope.
func (s Scope) Identity() bool { return !s.nested }

// Translate returns a copy of op with every qubit and classical bit index
// rewritten through s.
func (s Scope) Translate(op ir.Op) ir.Op {
	out := ir.Op{Kind: op.Kind, Angle: op.Angle}
	if op.Operands != nil {
		out.Operands = make([]int, len(op.Operands))
		for i, q := range op.Operands {
			out.Operands[i] = s.Qubit(q)
		}
	}
	if op.Targets != nil {
		out.Targets = make([]int, len(op.Targets))
		for i, b := range op.Targets {
			out.Targets[i] = s.Cbit(b)
		}
	}
	return out
}
