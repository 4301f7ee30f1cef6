package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/builder"
	"github.com/roach88/qflow/internal/ir"
)

// Bell returns H(0); CNOT(0,1); M(0->0); M(1->1).
func Bell(tb testing.TB) *ir.Circuit {
	tb.Helper()
	b := builder.New(builder.WithName("bell"))
	require.NoError(tb, b.Hadamard(0))
	require.NoError(tb, b.Cnot(0, 1))
	require.NoError(tb, b.Measure(0, 0))
	require.NoError(tb, b.Measure(1, 1))
	return mustBuild(tb, b)
}

// GHZ returns the n-qubit GHZ preparation followed by measuring every
// qubit into the bit of the same index.
func GHZ(tb testing.TB, n int) *ir.Circuit {
	tb.Helper()
	b := builder.New(builder.WithName("ghz"))
	require.NoError(tb, b.Hadamard(0))
	for q := 1; q < n; q++ {
		require.NoError(tb, b.Cnot(q-1, q))
	}
	for q := range n {
		require.NoError(tb, b.Measure(q, q))
	}
	return mustBuild(tb, b)
}

// Nested returns a 4-qubit circuit that reaches a Bell pair on qubits 3
// and 1 through two levels of subcircuits, then measures both.
//
//	pair:  H(0); CNOT(0,1)
//	mid:   apply pair on (2, 0)
//	outer: apply mid on (3, 2, 1); M(3->0); M(1->1)
func Nested(tb testing.TB) *ir.Circuit {
	tb.Helper()
	pb := builder.New(builder.WithName("pair"))
	require.NoError(tb, pb.Hadamard(0))
	require.NoError(tb, pb.Cnot(0, 1))
	pair := mustBuild(tb, pb)

	mb := builder.New(builder.WithName("mid"))
	require.NoError(tb, mb.Apply(pair, []int{2, 0}, nil))
	mid := mustBuild(tb, mb)

	ob := builder.New(builder.WithName("nested"))
	require.NoError(tb, ob.Apply(mid, []int{3, 2, 1}, nil))
	require.NoError(tb, ob.Measure(3, 0))
	require.NoError(tb, ob.Measure(1, 1))
	return mustBuild(tb, ob)
}

func mustBuild(tb testing.TB, b *builder.Builder) *ir.Circuit {
	tb.Helper()
	c, err := b.Circuit()
	require.NoError(tb, err)
	return c
}
