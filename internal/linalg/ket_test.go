package linalg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/ir"
)

func TestKet_ZeroKeepsBuffer(t *testing.T) {
	k := KetOf(1, 2i, 3)
	buf := k.Amplitudes()

	k.Zero()
	assert.Equal(t, []complex128{0, 0, 0}, k.Amplitudes())
	assert.Same(t, &buf[0], &k.Amplitudes()[0], "Zero must not reallocate")
}

func TestKet_Normalize(t *testing.T) {
	k := KetOf(3, 4i)
	norm := k.Normalize()

	assert.InDelta(t, 5, norm, tol)
	assert.InDelta(t, 1, k.Norm(), tol)
	assert.InDelta(t, 0.36, k.Probability(0), tol)
	assert.InDelta(t, 0.64, k.Probability(1), tol)
}

func TestKet_NormalizeZeroVector(t *testing.T) {
	k := NewKet(2)
	assert.Equal(t, 0.0, k.Normalize())
	for _, a := range k.Amplitudes() {
		assert.False(t, math.IsNaN(real(a)))
	}
}

func TestKet_DimensionOne(t *testing.T) {
	k := NewKet(1)
	k.Set(0, 1)
	out, err := Eye(1).Apply(k)
	require.NoError(t, err)
	assert.Equal(t, complex128(1), out.At(0))
}

func TestKet_CopyFromAndClone(t *testing.T) {
	src := KetOf(1, 2)
	dst := NewKet(2)
	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, src.Amplitudes(), dst.Amplitudes())

	err := NewKet(3).CopyFrom(src)
	assert.ErrorIs(t, err, ir.ErrDimensionMismatch)

	c := src.Clone()
	c.Set(0, 9)
	assert.Equal(t, complex128(1), src.At(0))
}
