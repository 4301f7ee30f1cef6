// Package render draws circuits as plain-text diagrams.
//
// A diagram has one row per qubit (q0, q1, ...) followed by one row per
// classical bit (c0, c1, ...). Qubit wires are drawn with '-' and classical
// wires with '='. Every top-level node takes one column, except a
// multi-qubit measurement, which takes one column per measured qubit.
//
// Symbols:
//
//	H X Y Z    single-qubit gates
//	P(φ) Rx(θ) parametrized gates, angle printed with %.3g
//	* +        control and target of Cnot / Toffoli
//	X          unconditional NOT (single-operand Cnot)
//	x x        swapped pair
//	M ... v    measured qubit and the classical bit it writes
//	|          vertical connector across rows a node spans
//	[name:q0]  subcircuit, one box per mapped qubit or bit
//
// Subcircuits are drawn as opaque boxes; their bodies are not expanded.
package render

import (
	"fmt"
	"strings"

	"github.com/roach88/qflow/internal/ir"
)

const (
	qubitWire = '-'
	cbitWire  = '='
)

// column holds the content of each row for one diagram column. An empty
// string leaves the wire untouched.
type column []string

type diagram struct {
	qubits int
	cbits  int
	cols   []column
}

// Diagram renders c. It reads c only through its public accessors.
func Diagram(c *ir.Circuit) string {
	d := &diagram{qubits: c.Qubits(), cbits: c.Cbits()}
	for _, n := range c.Nodes() {
		switch n := n.(type) {
		case ir.Op:
			d.op(n)
		case *ir.Subcircuit:
			d.subcircuit(n)
		}
	}
	return d.String(c.Name())
}

func (d *diagram) rows() int { return d.qubits + d.cbits }

func (d *diagram) newColumn() column {
	col := make(column, d.rows())
	d.cols = append(d.cols, col)
	return col
}

// connect draws '|' on every untouched row between the topmost and
// bottommost touched rows.
func (col column) connect() {
	lo, hi := -1, -1
	for i, s := range col {
		if s == "" {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	for i := lo + 1; i < hi; i++ {
		if col[i] == "" {
			col[i] = "|"
		}
	}
}

func label(op ir.Op) string {
	if op.Kind.Parametrized() {
		return fmt.Sprintf("%s(%.3g)", op.Kind.Label(), op.Angle)
	}
	return op.Kind.Label()
}

func (d *diagram) op(op ir.Op) {
	switch op.Kind {
	case ir.KindMeasure:
		for i, q := range op.Operands {
			col := d.newColumn()
			col[q] = "M"
			col[d.qubits+op.Targets[i]] = "v"
			col.connect()
		}
		return
	case ir.KindCnot, ir.KindToffoli:
		col := d.newColumn()
		last := len(op.Operands) - 1
		if last == 0 {
			col[op.Operands[0]] = "X"
			return
		}
		for _, q := range op.Operands[:last] {
			col[q] = "*"
		}
		col[op.Operands[last]] = "+"
		col.connect()
	default:
		col := d.newColumn()
		for _, q := range op.Operands {
			col[q] = label(op)
		}
		col.connect()
	}
}

func (d *diagram) subcircuit(s *ir.Subcircuit) {
	name := s.Circuit().Name()
	col := d.newColumn()
	for i, q := range s.QubitMap() {
		col[q] = fmt.Sprintf("[%s:q%d]", name, i)
	}
	for i, b := range s.CbitMap() {
		col[d.qubits+b] = fmt.Sprintf("[%s:c%d]", name, i)
	}
	col.connect()
}

func (d *diagram) String(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d qubits, %d cbits\n", name, d.qubits, d.cbits)

	labels := make([]string, d.rows())
	width := 0
	for r := range labels {
		if r < d.qubits {
			labels[r] = fmt.Sprintf("q%d", r)
		} else {
			labels[r] = fmt.Sprintf("c%d", r-d.qubits)
		}
		width = max(width, len(labels[r]))
	}

	widths := make([]int, len(d.cols))
	for i, col := range d.cols {
		widths[i] = 1
		for _, s := range col {
			widths[i] = max(widths[i], len(s))
		}
	}

	for r, l := range labels {
		wire := byte(qubitWire)
		if r >= d.qubits {
			wire = cbitWire
		}
		sb.WriteString(l)
		sb.WriteString(strings.Repeat(" ", width-len(l)+1))
		sb.WriteByte(wire)
		for i, col := range d.cols {
			sb.WriteString(col[r])
			sb.WriteString(strings.Repeat(string(wire), widths[i]-len(col[r])+1))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
