package flow

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/builder"
	"github.com/roach88/qflow/internal/ir"
)

// recorder implements every sink interface and logs calls as strings.
type recorder struct {
	calls []string
}

func (r *recorder) log(format string, args ...any) error {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return nil
}

func (r *recorder) Hadamard(q int) error { return r.log("h %d", q) }
func (r *recorder) PauliX(q int) error { return r.log("x %d", q) }
func (r *recorder) PauliY(q int) error { return r.log("y %d", q) }
func (r *recorder) PauliZ(q int) error { return r.log("z %d", q) }
func (r *recorder) Phase(q int, phi float64) error { return r.log("p %d %g", q, phi) }
func (r *recorder) RotateX(q int, theta float64) error { return r.log("rx %d %g", q, theta) }
func (r *recorder) Swap(a, b int) error { return r.log("swap %d %d", a, b) }
func (r *recorder) Cnot(c, t int) error { return r.log("cx %d %d", c, t) }
func (r *recorder) Toffoli(a, b, t int) error { return r.log("ccx %d %d %d", a, b, t) }
func (r *recorder) Measure(src, dst int) error { return r.log("m %d %d", src, dst) }

type minimalSink struct{ n int }

func (m *minimalSink) Hadamard(int) error { m.n++; return nil }
func (m *minimalSink) PauliX(int) error { m.n++; return nil }
func (m *minimalSink) Cnot(int, int) error { m.n++; return nil }
func (m *minimalSink) RotateX(int, float64) error { m.n++; return nil }
func (m *minimalSink) Measure(int, int) error { m.n++; return nil }

func mustCircuit(t *testing.T, b *builder.Builder) *ir.Circuit {
	t.Helper()
	c, err := b.Circuit()
	require.NoError(t, err)
	return c
}

func TestWalk_TopLevelIsIdentity(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Hadamard(0))
	require.NoError(t, b.Cnot(0, 1))
	require.NoError(t, b.Measure(0, 0))
	require.NoError(t, b.Measure(1, 1))

	r := &recorder{}
	require.NoError(t, Walk(mustCircuit(t, b), r))
	assert.Equal(t, []string{"h 0", "cx 0 1", "m 0 0", "m 1 1"}, r.calls)
}

func TestWalk_DispatchesEveryKind(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Hadamard(0))
	require.NoError(t, b.PauliX(1))
	require.NoError(t, b.PauliY(2))
	require.NoError(t, b.PauliZ(0))
	require.NoError(t, b.Phase(1, 0.5))
	require.NoError(t, b.RotateX(2, 2))
	require.NoError(t, b.Swap(0, 2))
	require.NoError(t, b.Not(1))
	require.NoError(t, b.Cnot(2, 0))
	require.NoError(t, b.Toffoli(2, 0, 1))
	require.NoError(t, b.MeasureJoint([]int{2, 0}, []int{1, 0}))

	r := &recorder{}
	require.NoError(t, Walk(mustCircuit(t, b), r))
	assert.Equal(t, []string{
		"h 0", "x 1", "y 2", "z 0", "p 1 0.5", "rx 2 2",
		"swap 0 2", "x 1", "cx 2 0", "ccx 2 0 1",
		"m 2 1", "m 0 0",
	}, r.calls)
}

func TestWalk_UnsupportedKind(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Hadamard(0))
	require.NoError(t, b.Swap(0, 1))
	require.NoError(t, b.Hadamard(1))

	m := &minimalSink{}
	err := Walk(mustCircuit(t, b), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrUnsupportedOperation)
	assert.Equal(t, 1, m.n, "ops before the failure are delivered, none after")
}

func TestDispatch_RejectsMalformedOp(t *testing.T) {
	err := Dispatch(&recorder{}, ir.Op{Kind: ir.KindCnot})
	assert.ErrorIs(t, err, ir.ErrInvalidOperands)

	err = Dispatch(&recorder{}, ir.Op{Kind: ir.Kind(99), Operands: []int{0}})
	assert.ErrorIs(t, err, ir.ErrUnsupportedOperation)
}

func TestWalk_SinkErrorStops(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Hadamard(0, 1, 2))

	calls := 0
	boom := fmt.Errorf("sink failed")
	err := Each(mustCircuit(t, b), func(ir.Op) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestFlatten_DepthTwoComposition(t *testing.T) {
	// inner qubit 0 -> mid qubit 3 -> outer qubit 7
	inner := builder.New(builder.WithName("inner"))
	require.NoError(t, inner.Hadamard(0))
	require.NoError(t, inner.Measure(0, 0))
	in := mustCircuit(t, inner)

	mid := builder.New(builder.WithName("mid"))
	require.NoError(t, mid.PauliX(0))
	require.NoError(t, mid.Apply(in, []int{3}, []int{1}))
	require.NoError(t, mid.PauliZ(3))
	md := mustCircuit(t, mid)
	require.Equal(t, 4, md.Qubits())

	outer := builder.New()
	require.NoError(t, outer.Apply(md, []int{2, 4, 5, 7}, []int{6, 3}))
	require.NoError(t, outer.Hadamard(0))
	out := mustCircuit(t, outer)

	ops, err := Flatten(out)
	require.NoError(t, err)

	var got []string
	for _, op := range ops {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		"pauli_x(2)",
		"hadamard(7)",
		"measure(7->3)",
		"pauli_z(7)",
		"hadamard(0)",
	}, got)
}

func TestFlatten_DoesNotAliasCircuit(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Cnot(0, 1))
	c := mustCircuit(t, b)

	ops, err := Flatten(c)
	require.NoError(t, err)
	ops[0].Operands[0] = 9

	again, err := Flatten(c)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, again[0].Operands)
}

func TestFlatten_Empty(t *testing.T) {
	ops, err := Flatten(mustCircuit(t, builder.New()))
	require.NoError(t, err)
	assert.Empty(t, ops)
	assert.NotNil(t, ops)
}

func TestScope_ComposeLeavesParentUnchanged(t *testing.T) {
	b := builder.New()
	require.NoError(t, b.Cnot(0, 1))
	pair := mustCircuit(t, b)

	sub1, err := ir.NewSubcircuit(pair, []int{4, 2}, nil)
	require.NoError(t, err)
	sub2, err := ir.NewSubcircuit(pair, []int{1, 0}, nil)
	require.NoError(t, err)

	top := Scope{}
	assert.True(t, top.Identity())

	s1 := top.Compose(sub1)
	s2 := s1.Compose(sub2)
	assert.Equal(t, 4, s1.Qubit(0))
	assert.Equal(t, 2, s2.Qubit(0))
	assert.Equal(t, 4, s2.Qubit(1))
	assert.Equal(t, 4, s1.Qubit(0), "composing must not modify the parent")
	assert.Equal(t, 5, top.Qubit(5))
}

// randomNest builds a circuit nested depth levels deep and returns it with
// the expected flattened ops, computed by composing the mappings directly.
func randomNest(t *testing.T, rng *rand.Rand, depth int) (*ir.Circuit, []string) {
	t.Helper()

	leaf := builder.New()
	require.NoError(t, leaf.Cnot(0, 1))
	require.NoError(t, leaf.Measure(2, 0))
	c := mustCircuit(t, leaf)

	// identity maps from the leaf register to the current circuit register
	qmap := []int{0, 1, 2}
	cmap := []int{0}

	for range depth {
		qubits := c.Qubits() + rng.IntN(4)
		cbits := c.Cbits() + rng.IntN(3)
		qperm := rng.Perm(qubits)[:c.Qubits()]
		cperm := rng.Perm(cbits)[:c.Cbits()]

		parent := builder.New()
		require.NoError(t, parent.Apply(c, qperm, cperm))
		require.NoError(t, parent.Hadamard(qubits-1))
		require.NoError(t, parent.Measure(0, cbits-1))
		c = mustCircuit(t, parent)

		for i := range qmap {
			qmap[i] = qperm[qmap[i]]
		}
		for i := range cmap {
			cmap[i] = cperm[cmap[i]]
		}
	}

	want := []string{
		ir.Cnot(qmap[0], qmap[1]).String(),
		ir.Measure(qmap[2], cmap[0]).String(),
	}
	return c, want
}

func TestFlatten_RandomNestingComposesMappings(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := range 50 {
		depth := 2 + rng.IntN(4)
		t.Run(fmt.Sprintf("trial_%d_depth_%d", trial, depth), func(t *testing.T) {
			c, want := randomNest(t, rng, depth)

			ops, err := Flatten(c)
			require.NoError(t, err)
			// the leaf ops come first; every level appends two of its own
			require.Len(t, ops, 2+2*depth)
			assert.Equal(t, want[0], ops[0].String())
			assert.Equal(t, want[1], ops[1].String())
			for _, op := range ops {
				for _, q := range op.Operands {
					assert.Less(t, q, c.Qubits())
				}
				for _, b := range op.Targets {
					assert.Less(t, b, c.Cbits())
				}
			}
		})
	}
}
