package loader

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/ir"
)

// gateNames is the file name written for each kind.
var gateNames = map[ir.Kind]string{
	ir.KindHadamard: "h",
	ir.KindPauliX:   "x",
	ir.KindPauliY:   "y",
	ir.KindPauliZ:   "z",
	ir.KindPhase:    "phase",
	ir.KindRotateX:  "rx",
	ir.KindSwap:     "swap",
	ir.KindCnot:     "cnot",
	ir.KindToffoli:  "toffoli",
	ir.KindMeasure:  "measure",
}

// Export flattens c into a File with fixed registers and no definitions.
// Building the returned File yields a circuit whose flattened op stream
// equals that of c.
func Export(c *ir.Circuit) (*File, error) {
	ops, err := flow.Flatten(c)
	if err != nil {
		return nil, err
	}

	qubits, cbits := c.Qubits(), c.Cbits()
	f := &File{Name: c.Name(), Qubits: &qubits, Cbits: &cbits, Ops: make([]Step, 0, len(ops))}
	for _, op := range ops {
		name, ok := gateNames[op.Kind]
		if !ok {
			return nil, ir.NewUnsupportedError(op.Kind, "export")
		}
		step := Step{Gate: name, Qubits: op.Operands, Cbits: op.Targets}
		if op.Kind.Parametrized() {
			step.Angle = op.Angle
		}
		f.Ops = append(f.Ops, step)
	}
	return f, nil
}

// Marshal renders f as a YAML circuit file, one flow-style step per line.
func (f *File) Marshal() ([]byte, error) {
	var root yaml.Node
	if err := root.Encode(f); err != nil {
		return nil, fmt.Errorf("encode circuit file: %w", err)
	}
	for _, kv := range mappingPairs(&root) {
		if kv[0].Value == "ops" || kv[0].Value == "define" {
			flowSteps(kv[1])
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("encode circuit file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode circuit file: %w", err)
	}
	return buf.Bytes(), nil
}

// mappingPairs returns the key/value node pairs of a mapping node.
func mappingPairs(n *yaml.Node) [][2]*yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	pairs := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return pairs
}

// flowSteps switches every step mapping under n to flow style.
func flowSteps(n *yaml.Node) {
	switch n.Kind {
	case yaml.SequenceNode:
		for _, step := range n.Content {
			step.Style = yaml.FlowStyle
		}
	case yaml.MappingNode:
		for _, kv := range mappingPairs(n) {
			flowSteps(kv[1])
		}
	}
}
