package ir

import (
	"fmt"
	"iter"
	"slices"
)

// DefaultCircuitName is reported by Name when a circuit was built unnamed.
const DefaultCircuitName = "circuit"

// Node is one entry in a circuit's node list: either an Op or a *Subcircuit.
//
// The interface is sealed; code that inspects nodes uses a type switch with
// exactly those two cases.
type Node interface {
	isNode()
}

// Subcircuit embeds an inner circuit into an outer one.
//
// QubitMap[i] is the outer qubit that inner qubit i is wired to, and
// likewise for CbitMap. Both maps have one entry per inner register slot and
// no repeated values.
type Subcircuit struct {
	circuit  *Circuit
	qubitMap []int
	cbitMap  []int
}

// isNode seals Node.
func (*Subcircuit) isNode() {}

// NewSubcircuit validates the mappings against inner and returns the node.
// Returns InvalidSubcircuitMapping if a mapping has the wrong length or a
// repeated value, and IndexOutOfRange if a mapping value is negative.
//
// The check happens here, before the node can be attached to any parent.
func NewSubcircuit(inner *Circuit, qubitMap, cbitMap []int) (*Subcircuit, error) {
	if inner == nil {
		return nil, NewMappingError("qubit", "nil inner circuit")
	}
	if err := checkMapping("qubit", qubitMap, inner.Qubits()); err != nil {
		return nil, err
	}
	if err := checkMapping("cbit", cbitMap, inner.Cbits()); err != nil {
		return nil, err
	}
	return &Subcircuit{
		circuit:  inner,
		qubitMap: slices.Clone(qubitMap),
		cbitMap:  slices.Clone(cbitMap),
	}, nil
}

func checkMapping(register string, mapping []int, size int) error {
	if len(mapping) != size {
		return NewMappingError(register, fmt.Sprintf("length %d, inner register has %d", len(mapping), size))
	}
	seen := make(map[int]struct{}, len(mapping))
	for _, v := range mapping {
		if v < 0 {
			return NewIndexError(register, v, -1)
		}
		if _, dup := seen[v]; dup {
			return NewMappingError(register, fmt.Sprintf("value %d repeated", v))
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Circuit returns the inner circuit.
func (s *Subcircuit) Circuit() *Circuit { return s.circuit }

// QubitMap returns a copy of the inner-to-outer qubit mapping.
func (s *Subcircuit) QubitMap() []int { return slices.Clone(s.qubitMap) }

// CbitMap returns a copy of the inner-to-outer classical bit mapping.
func (s *Subcircuit) CbitMap() []int { return slices.Clone(s.cbitMap) }

// QubitAt returns the outer qubit for inner qubit i without copying the map.
func (s *Subcircuit) QubitAt(i int) int { return s.qubitMap[i] }

// CbitAt returns the outer classical bit for inner bit i.
func (s *Subcircuit) CbitAt(i int) int { return s.cbitMap[i] }

// maxQubit and maxCbit return the largest outer index touched, or -1.
func (s *Subcircuit) maxQubit() int { return maxOf(s.qubitMap) }
func (s *Subcircuit) maxCbit() int  { return maxOf(s.cbitMap) }

func maxOf(xs []int) int {
	if len(xs) == 0 {
		return -1
	}
	return slices.Max(xs)
}

// Circuit is an immutable, ordered list of nodes over a quantum register of
// Qubits() qubits and a classical register of Cbits() bits.
//
// Circuits are safe to share between goroutines: no method mutates them.
type Circuit struct {
	name         string
	qubits       int
	cbits        int
	nodes        []Node
	measurements int
}

// NewCircuit validates nodes against the register sizes and returns a
// circuit owning deep copies of every op.
//
// Every op must pass Op.Validate and reference only qubits < qubits and
// bits < cbits; every subcircuit mapping must stay within the same bounds.
// measurements is the number of classical results the top-level Measure ops
// produce (the sum of their arities).
func NewCircuit(name string, qubits, cbits int, nodes []Node) (*Circuit, error) {
	if qubits < 0 {
		return nil, NewIndexError("qubit register", qubits, -1)
	}
	if cbits < 0 {
		return nil, NewIndexError("cbit register", cbits, -1)
	}

	c := &Circuit{
		name:   name,
		qubits: qubits,
		cbits:  cbits,
		nodes:  make([]Node, 0, len(nodes)),
	}

	for i, n := range nodes {
		switch node := n.(type) {
		case Op:
			if err := node.Validate(); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			if err := checkBounds(node, qubits, cbits); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			if node.Kind == KindMeasure {
				c.measurements += node.Arity()
			}
			c.nodes = append(c.nodes, node.clone())
		case *Subcircuit:
			if node == nil {
				return nil, fmt.Errorf("node %d: %w", i, NewMappingError("qubit", "nil subcircuit"))
			}
			if m := node.maxQubit(); m >= qubits {
				return nil, fmt.Errorf("node %d: %w", i, NewIndexError("qubit", m, qubits))
			}
			if m := node.maxCbit(); m >= cbits {
				return nil, fmt.Errorf("node %d: %w", i, NewIndexError("cbit", m, cbits))
			}
			c.nodes = append(c.nodes, node)
		default:
			return nil, fmt.Errorf("node %d: %w", i, &Error{
				Code:    CodeUnsupportedOperation,
				Message: fmt.Sprintf("unknown node type %T", n),
			})
		}
	}

	return c, nil
}

func checkBounds(op Op, qubits, cbits int) error {
	for _, q := range op.Operands {
		if q >= qubits {
			return NewIndexError("qubit", q, qubits)
		}
	}
	for _, b := range op.Targets {
		if b >= cbits {
			return NewIndexError("cbit", b, cbits)
		}
	}
	return nil
}

// Name returns the display name, or DefaultCircuitName if none was set.
func (c *Circuit) Name() string {
	if c.name == "" {
		return DefaultCircuitName
	}
	return c.name
}

// Qubits returns the quantum register size.
func (c *Circuit) Qubits() int { return c.qubits }

// Cbits returns the classical register size.
func (c *Circuit) Cbits() int { return c.cbits }

// Len returns the number of top-level nodes.
func (c *Circuit) Len() int { return len(c.nodes) }

// Measurements returns the number of classical results written by the
// circuit's own Measure ops (subcircuits not included).
func (c *Circuit) Measurements() int { return c.measurements }

// Node returns node i. Ops are returned as copies.
func (c *Circuit) Node(i int) Node {
	if op, ok := c.nodes[i].(Op); ok {
		return op.clone()
	}
	return c.nodes[i]
}

// Nodes returns a copy of the node list.
func (c *Circuit) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	for i := range c.nodes {
		out[i] = c.Node(i)
	}
	return out
}

// All iterates over (index, node) pairs in declaration order.
//
// Ops are yielded without copying; callers must not modify their slices.
func (c *Circuit) All() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		for i, n := range c.nodes {
			if !yield(i, n) {
				return
			}
		}
	}
}
