package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed circuit identity.
// Version suffix enables future algorithm migration.
const DomainCircuit = "qflow/circuit/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalNode is the serialization used only for hashing. Struct field
// order fixes key order; float angles use encoding/json's shortest form.
type canonicalNode struct {
	Kind     string            `json:"kind,omitempty"`
	Operands []int             `json:"operands,omitempty"`
	Targets  []int             `json:"targets,omitempty"`
	Angle    *float64          `json:"angle,omitempty"`
	Circuit  *canonicalCircuit `json:"circuit,omitempty"`
	QubitMap []int             `json:"qubit_map,omitempty"`
	CbitMap  []int             `json:"cbit_map,omitempty"`
}

type canonicalCircuit struct {
	Name   string          `json:"name"`
	Qubits int             `json:"qubits"`
	Cbits  int             `json:"cbits"`
	Nodes  []canonicalNode `json:"nodes"`
}

func toCanonical(c *Circuit) *canonicalCircuit {
	out := &canonicalCircuit{
		// NFC normalize at serialization boundary
		Name:   norm.NFC.String(c.Name()),
		Qubits: c.qubits,
		Cbits:  c.cbits,
		Nodes:  make([]canonicalNode, 0, len(c.nodes)),
	}
	for _, n := range c.nodes {
		switch node := n.(type) {
		case Op:
			cn := canonicalNode{
				Kind:     node.Kind.String(),
				Operands: node.Operands,
				Targets:  node.Targets,
			}
			if node.Kind.Parametrized() {
				angle := node.Angle
				cn.Angle = &angle
			}
			out.Nodes = append(out.Nodes, cn)
		case *Subcircuit:
			out.Nodes = append(out.Nodes, canonicalNode{
				Circuit:  toCanonical(node.circuit),
				QubitMap: node.qubitMap,
				CbitMap:  node.cbitMap,
			})
		}
	}
	return out
}

// CircuitID computes the content-addressed ID of a circuit.
// Two circuits with the same name, registers and node tree (sub-circuits
// included) have the same ID.
func CircuitID(c *Circuit) (string, error) {
	data, err := json.Marshal(toCanonical(c))
	if err != nil {
		return "", fmt.Errorf("CircuitID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCircuit, data), nil
}
