package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bellNodes() []Node {
	return []Node{
		Hadamard(0),
		Cnot(0, 1),
		Measure(0, 0),
		Measure(1, 1),
	}
}

func TestNewCircuit_Bell(t *testing.T) {
	c, err := NewCircuit("bell", 2, 2, bellNodes())
	require.NoError(t, err)

	assert.Equal(t, 2, c.Qubits())
	assert.Equal(t, 2, c.Cbits())
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 2, c.Measurements())
	assert.Equal(t, "bell", c.Name())
}

func TestNewCircuit_DefaultName(t *testing.T) {
	c, err := NewCircuit("", 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCircuitName, c.Name())
	assert.Equal(t, 0, c.Len())
}

func TestNewCircuit_OutOfBounds(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"qubit beyond register", []Node{Hadamard(2)}},
		{"negative qubit", []Node{PauliX(-1)}},
		{"cbit beyond register", []Node{Measure(0, 5)}},
		{"cnot target beyond register", []Node{Cnot(0, 3)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCircuit("x", 2, 2, tc.nodes)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
		})
	}
}

func TestNewCircuit_InvalidOperands(t *testing.T) {
	tests := []struct {
		name string
		op   Op
	}{
		{"cnot on same qubit", Cnot(1, 1)},
		{"toffoli with two operands", Op{Kind: KindToffoli, Operands: []int{0, 1}}},
		{"measure without targets", Op{Kind: KindMeasure, Operands: []int{0}}},
		{"hadamard with targets", Op{Kind: KindHadamard, Operands: []int{0}, Targets: []int{0}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCircuit("x", 3, 3, []Node{tc.op})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOperands)
		})
	}
}

func TestNewCircuit_UnknownKind(t *testing.T) {
	_, err := NewCircuit("x", 1, 0, []Node{Op{Kind: Kind(99), Operands: []int{0}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestNewCircuit_CopiesInput(t *testing.T) {
	op := Cnot(0, 1)
	c, err := NewCircuit("x", 2, 0, []Node{op})
	require.NoError(t, err)

	op.Operands[0] = 1
	got := c.Node(0).(Op)
	assert.Equal(t, []int{0, 1}, got.Operands)

	got.Operands[1] = 0
	assert.Equal(t, []int{0, 1}, c.Node(0).(Op).Operands, "Node must return a copy")
}

func TestCircuit_All(t *testing.T) {
	c, err := NewCircuit("bell", 2, 2, bellNodes())
	require.NoError(t, err)

	var kinds []Kind
	for _, n := range c.All() {
		kinds = append(kinds, n.(Op).Kind)
	}
	assert.Equal(t, []Kind{KindHadamard, KindCnot, KindMeasure, KindMeasure}, kinds)

	count := 0
	for range c.All() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestNewSubcircuit_Valid(t *testing.T) {
	inner, err := NewCircuit("inner", 2, 1, []Node{Cnot(0, 1), Measure(1, 0)})
	require.NoError(t, err)

	sc, err := NewSubcircuit(inner, []int{3, 1}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, sc.QubitMap())
	assert.Equal(t, []int{0}, sc.CbitMap())
	assert.Equal(t, 3, sc.QubitAt(0))
	assert.Same(t, inner, sc.Circuit())

	outer, err := NewCircuit("outer", 4, 1, []Node{sc})
	require.NoError(t, err)
	assert.Equal(t, 1, outer.Len())
	assert.Equal(t, 0, outer.Measurements(), "subcircuit measurements are not counted")
}

func TestNewSubcircuit_InvalidMapping(t *testing.T) {
	inner, err := NewCircuit("inner", 2, 1, []Node{Cnot(0, 1), Measure(1, 0)})
	require.NoError(t, err)

	tests := []struct {
		name    string
		qubits  []int
		cbits   []int
		wantErr error
	}{
		{"qubit map too short", []int{0}, []int{0}, ErrInvalidSubcircuitMapping},
		{"qubit map too long", []int{0, 1, 2}, []int{0}, ErrInvalidSubcircuitMapping},
		{"cbit map too short", []int{0, 1}, []int{}, ErrInvalidSubcircuitMapping},
		{"repeated qubit", []int{2, 2}, []int{0}, ErrInvalidSubcircuitMapping},
		{"negative qubit", []int{-1, 2}, []int{0}, ErrIndexOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc, err := NewSubcircuit(inner, tc.qubits, tc.cbits)
			require.Error(t, err)
			assert.Nil(t, sc)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewCircuit_SubcircuitOutOfBounds(t *testing.T) {
	inner, err := NewCircuit("inner", 1, 0, []Node{Hadamard(0)})
	require.NoError(t, err)
	sc, err := NewSubcircuit(inner, []int{4}, nil)
	require.NoError(t, err)

	_, err = NewCircuit("outer", 2, 0, []Node{sc})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestError_IsMatchesCategoryThroughWrapping(t *testing.T) {
	err := NewDimensionError("add", 2, 4)
	wrapped := errors.Join(errors.New("context"), err)

	assert.ErrorIs(t, wrapped, ErrDimensionMismatch)
	assert.NotErrorIs(t, wrapped, ErrIndexOutOfRange)
	assert.Equal(t, CodeDimensionMismatch, CodeOf(wrapped))
	assert.Equal(t, "2", err.Details["left"])
	assert.Contains(t, err.Error(), "DIMENSION_MISMATCH")
}

func TestIsContextError(t *testing.T) {
	assert.True(t, IsContextError(ErrContextConflict))
	assert.True(t, IsContextError(ErrContextViolation))
	assert.False(t, IsContextError(ErrIndexOutOfRange))
	assert.False(t, IsContextError(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
