package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitIDDeterminism(t *testing.T) {
	c1, err := NewCircuit("bell", 2, 2, bellNodes())
	require.NoError(t, err)
	c2, err := NewCircuit("bell", 2, 2, bellNodes())
	require.NoError(t, err)

	id1, err := CircuitID(c1)
	require.NoError(t, err)
	id2, err := CircuitID(c2)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "CircuitID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestCircuitIDChangesWithInput(t *testing.T) {
	base, err := NewCircuit("c", 2, 0, []Node{RotateX(0, 0.5)})
	require.NoError(t, err)
	baseID, err := CircuitID(base)
	require.NoError(t, err)

	variants := map[string][]Node{
		"angle":    {RotateX(0, 0.25)},
		"qubit":    {RotateX(1, 0.5)},
		"kind":     {Phase(0, 0.5)},
		"extra op": {RotateX(0, 0.5), Hadamard(1)},
	}
	for name, nodes := range variants {
		t.Run(name, func(t *testing.T) {
			c, err := NewCircuit("c", 2, 0, nodes)
			require.NoError(t, err)
			id, err := CircuitID(c)
			require.NoError(t, err)
			assert.NotEqual(t, baseID, id)
		})
	}
}

func TestCircuitIDNormalizesName(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent
	nfc, err := NewCircuit("caf\u00e9", 1, 0, []Node{Hadamard(0)})
	require.NoError(t, err)
	nfd, err := NewCircuit("cafe\u0301", 1, 0, []Node{Hadamard(0)})
	require.NoError(t, err)

	id1, err := CircuitID(nfc)
	require.NoError(t, err)
	id2, err := CircuitID(nfd)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestCircuitIDIncludesSubcircuits(t *testing.T) {
	innerA, err := NewCircuit("inner", 1, 0, []Node{Hadamard(0)})
	require.NoError(t, err)
	innerB, err := NewCircuit("inner", 1, 0, []Node{PauliX(0)})
	require.NoError(t, err)

	scA, err := NewSubcircuit(innerA, []int{1}, nil)
	require.NoError(t, err)
	scB, err := NewSubcircuit(innerB, []int{1}, nil)
	require.NoError(t, err)

	outerA, err := NewCircuit("outer", 2, 0, []Node{scA})
	require.NoError(t, err)
	outerB, err := NewCircuit("outer", 2, 0, []Node{scB})
	require.NoError(t, err)

	idA, err := CircuitID(outerA)
	require.NoError(t, err)
	idB, err := CircuitID(outerB)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}
