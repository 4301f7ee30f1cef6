package flow

import "github.com/roach88/qflow/internal/ir"

// Sink consumes a flattened op stream. Indices are outer-register indices.
//
// Gates beyond this core set are delivered through the optional interfaces
// below; a sink that does not implement one cannot run circuits using it.
type Sink interface {
	Hadamard(q int) error
	PauliX(q int) error
	Cnot(control, target int) error
	RotateX(q int, theta float64) error
	Measure(source, target int) error
}

// PauliYSink accepts Pauli-Y gates.
type PauliYSink interface {
	PauliY(q int) error
}

// PauliZSink accepts Pauli-Z gates.
type PauliZSink interface {
	PauliZ(q int) error
}

// PhaseSink accepts phase gates.
type PhaseSink interface {
	Phase(q int, phi float64) error
}

// SwapSink accepts swaps.
type SwapSink interface {
	Swap(q1, q2 int) error
}

// ToffoliSink accepts doubly-controlled NOTs.
type ToffoliSink interface {
	Toffoli(c1, c2, target int) error
}

// Dispatch delivers one already-translated op to sink.
//
// A single-operand Cnot goes to PauliX. A measurement of several qubits
// becomes one Measure call per (source, target) pair in operand order.
func Dispatch(sink Sink, op ir.Op) error {
	if err := op.Validate(); err != nil {
		return err
	}
	q := op.Operands
	switch op.Kind {
	case ir.KindHadamard:
		return sink.Hadamard(q[0])
	case ir.KindPauliX:
		return sink.PauliX(q[0])
	case ir.KindPauliY:
		if s, ok := sink.(PauliYSink); ok {
			return s.PauliY(q[0])
		}
	case ir.KindPauliZ:
		if s, ok := sink.(PauliZSink); ok {
			return s.PauliZ(q[0])
		}
	case ir.KindPhase:
		if s, ok := sink.(PhaseSink); ok {
			return s.Phase(q[0], op.Angle)
		}
	case ir.KindRotateX:
		return sink.RotateX(q[0], op.Angle)
	case ir.KindSwap:
		if s, ok := sink.(SwapSink); ok {
			return s.Swap(q[0], q[1])
		}
	case ir.KindCnot:
		if len(q) == 1 {
			return sink.PauliX(q[0])
		}
		return sink.Cnot(q[0], q[1])
	case ir.KindToffoli:
		if s, ok := sink.(ToffoliSink); ok {
			return s.Toffoli(q[0], q[1], q[2])
		}
	case ir.KindMeasure:
		for i, src := range q {
			if err := sink.Measure(src, op.Targets[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return ir.NewUnsupportedError(op.Kind, "sink")
}
