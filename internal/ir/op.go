package ir

import (
	"fmt"
	"slices"
)

// Kind identifies the operation an Op performs.
//
// The set is closed: adding a kind means extending the switch statements
// in this file, in flow.dispatch, and in the simulator kernels.
type Kind int

const (
	// KindHadamard is the Hadamard gate on one qubit.
	KindHadamard Kind = iota + 1
	// KindPauliX is the bit flip on one qubit.
	KindPauliX
	// KindPauliY is the Pauli-Y gate on one qubit.
	KindPauliY
	// KindPauliZ is the phase flip on one qubit.
	KindPauliZ
	// KindPhase is diag(1, e^{iφ}) on one qubit; Angle holds φ.
	KindPhase
	// KindRotateX is the X-axis rotation on one qubit; Angle holds θ.
	KindRotateX
	// KindSwap exchanges two qubits.
	KindSwap
	// KindCnot is a controlled NOT (control, target), or an unconditional
	// NOT when it has a single operand.
	KindCnot
	// KindToffoli is a doubly-controlled NOT (control, control, target).
	KindToffoli
	// KindMeasure measures each operand qubit into the parallel Targets bit.
	KindMeasure
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindHadamard, KindPauliX, KindPauliY, KindPauliZ, KindPhase,
	KindRotateX, KindSwap, KindCnot, KindToffoli, KindMeasure,
}

// String returns the lower-case kind name used in logs, metrics and files.
func (k Kind) String() string {
	switch k {
	case KindHadamard:
		return "hadamard"
	case KindPauliX:
		return "pauli_x"
	case KindPauliY:
		return "pauli_y"
	case KindPauliZ:
		return "pauli_z"
	case KindPhase:
		return "phase"
	case KindRotateX:
		return "rotate_x"
	case KindSwap:
		return "swap"
	case KindCnot:
		return "cnot"
	case KindToffoli:
		return "toffoli"
	case KindMeasure:
		return "measure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label returns the short symbol drawn in circuit diagrams.
func (k Kind) Label() string {
	switch k {
	case KindHadamard:
		return "H"
	case KindPauliX:
		return "X"
	case KindPauliY:
		return "Y"
	case KindPauliZ:
		return "Z"
	case KindPhase:
		return "P"
	case KindRotateX:
		return "Rx"
	case KindSwap:
		return "x"
	case KindCnot, KindToffoli:
		return "+"
	case KindMeasure:
		return "M"
	default:
		return "?"
	}
}

// arity returns the allowed operand count range for k.
// hi < 0 means unbounded.
func (k Kind) arity() (lo, hi int) {
	switch k {
	case KindHadamard, KindPauliX, KindPauliY, KindPauliZ, KindPhase, KindRotateX:
		return 1, 1
	case KindSwap:
		return 2, 2
	case KindCnot:
		return 1, 2
	case KindToffoli:
		return 3, 3
	case KindMeasure:
		return 1, -1
	default:
		return 0, 0
	}
}

// Parametrized reports whether ops of kind k carry an Angle.
func (k Kind) Parametrized() bool {
	return k == KindPhase || k == KindRotateX
}

// Op is a single operation: a kind tag, ordered operands and an optional
// angle. Behavior (label, arity) is a pure function of Kind.
//
// Operands are qubit indices. For KindMeasure, Targets holds the classical
// bit written by each operand and has the same length as Operands; it is
// nil for every other kind.
type Op struct {
	Kind     Kind
	Operands []int
	Targets  []int
	Angle    float64
}

// isNode seals Node.
func (Op) isNode() {}

// Arity returns the number of qubit operands.
func (o Op) Arity() int {
	return len(o.Operands)
}

// Operand returns operand i, or an IndexOutOfRange error.
func (o Op) Operand(i int) (int, error) {
	if i < 0 || i >= len(o.Operands) {
		return 0, NewIndexError("operand", i, len(o.Operands))
	}
	return o.Operands[i], nil
}

// Validate checks the operand shape of o independent of any register:
// operand count for the kind, distinct non-negative qubits, and a Targets
// slice of matching length for measurements.
func (o Op) Validate() error {
	lo, hi := o.Kind.arity()
	if lo == 0 {
		return NewUnsupportedError(o.Kind, "ir")
	}
	n := len(o.Operands)
	if n < lo || (hi >= 0 && n > hi) {
		return NewOperandError(o.Kind, fmt.Sprintf("got %d operands", n))
	}
	for i, q := range o.Operands {
		if q < 0 {
			return NewIndexError("qubit", q, -1)
		}
		if slices.Contains(o.Operands[:i], q) {
			return NewOperandError(o.Kind, fmt.Sprintf("qubit %d repeated", q))
		}
	}
	if o.Kind == KindMeasure {
		if len(o.Targets) != n {
			return NewOperandError(o.Kind, fmt.Sprintf("%d sources but %d targets", n, len(o.Targets)))
		}
		for _, c := range o.Targets {
			if c < 0 {
				return NewIndexError("cbit", c, -1)
			}
		}
	} else if len(o.Targets) != 0 {
		return NewOperandError(o.Kind, "classical targets on a non-measurement")
	}
	return nil
}

// clone returns a deep copy so circuits never alias caller slices.
func (o Op) clone() Op {
	o.Operands = slices.Clone(o.Operands)
	o.Targets = slices.Clone(o.Targets)
	return o
}

// String renders the op as e.g. "cnot(0,1)" or "measure(0->1)".
func (o Op) String() string {
	s := o.Kind.String() + "("
	for i, q := range o.Operands {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", q)
		if o.Kind == KindMeasure && i < len(o.Targets) {
			s += fmt.Sprintf("->%d", o.Targets[i])
		}
	}
	if o.Kind.Parametrized() {
		s += fmt.Sprintf(";%g", o.Angle)
	}
	return s + ")"
}

// Constructors for each kind. They do not validate; NewCircuit and the
// builders do.

// Hadamard returns a Hadamard op on q.
func Hadamard(q int) Op { return Op{Kind: KindHadamard, Operands: []int{q}} }

// PauliX returns a bit flip on q.
func PauliX(q int) Op { return Op{Kind: KindPauliX, Operands: []int{q}} }

// PauliY returns a Pauli-Y op on q.
func PauliY(q int) Op { return Op{Kind: KindPauliY, Operands: []int{q}} }

// PauliZ returns a phase flip on q.
func PauliZ(q int) Op { return Op{Kind: KindPauliZ, Operands: []int{q}} }

// Phase returns diag(1, e^{i·phi}) on q.
func Phase(q int, phi float64) Op {
	return Op{Kind: KindPhase, Operands: []int{q}, Angle: phi}
}

// RotateX returns an X rotation by theta on q.
func RotateX(q int, theta float64) Op {
	return Op{Kind: KindRotateX, Operands: []int{q}, Angle: theta}
}

// Swap exchanges qubits a and b.
func Swap(a, b int) Op { return Op{Kind: KindSwap, Operands: []int{a, b}} }

// Not returns the single-operand form of Cnot.
func Not(q int) Op { return Op{Kind: KindCnot, Operands: []int{q}} }

// Cnot flips target when control is 1.
func Cnot(control, target int) Op {
	return Op{Kind: KindCnot, Operands: []int{control, target}}
}

// Toffoli flips target when both controls are 1.
func Toffoli(c1, c2, target int) Op {
	return Op{Kind: KindToffoli, Operands: []int{c1, c2, target}}
}

// Measure measures source into classical bit target.
func Measure(source, target int) Op {
	return Op{Kind: KindMeasure, Operands: []int{source}, Targets: []int{target}}
}

// MeasureJoint measures sources[i] into targets[i] for every i.
func MeasureJoint(sources, targets []int) Op {
	return Op{Kind: KindMeasure, Operands: slices.Clone(sources), Targets: slices.Clone(targets)}
}
