package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qflow/internal/flow"
	"github.com/roach88/qflow/internal/ir"
	"github.com/roach88/qflow/internal/testutil"
)

func TestWorker_ResetReusesBuffers(t *testing.T) {
	w := newWorker()
	w.reset(3, 2, 1, 0)
	a, b := &w.state.Amplitudes()[0], &w.scratch.Amplitudes()[0]
	cls := &w.classical[0]

	require.NoError(t, w.Hadamard(0))
	require.NoError(t, w.Measure(0, 1))

	w.reset(3, 2, 1, 1)
	s0, s1 := &w.state.Amplitudes()[0], &w.scratch.Amplitudes()[0]
	assert.True(t, (s0 == a && s1 == b) || (s0 == b && s1 == a), "state buffers must be reused")
	assert.Same(t, cls, &w.classical[0])

	assert.Equal(t, complex128(1), w.state.At(0))
	for i := 1; i < 8; i++ {
		assert.Equal(t, complex128(0), w.state.At(i))
	}
	assert.Equal(t, []byte{0, 0}, w.classical)
}

func TestWorker_ResetReallocatesOnWidthChange(t *testing.T) {
	w := newWorker()
	w.reset(1, 1, 0, 0)
	require.NoError(t, w.PauliX(0))
	assert.Len(t, w.kernels, 1)

	w.reset(3, 1, 0, 0)
	assert.Equal(t, 8, w.state.Dim())
	assert.Empty(t, w.kernels, "kernels for another width must be dropped")
}

func TestWorker_NormIsOneAfterEveryMeasurement(t *testing.T) {
	w := newWorker()
	for shot := range 50 {
		w.reset(4, 4, 77, shot)
		require.NoError(t, w.Hadamard(0))
		require.NoError(t, w.RotateX(1, 0.7))
		require.NoError(t, w.Cnot(0, 3))
		require.NoError(t, w.Phase(2, 1.1))
		require.NoError(t, w.Hadamard(2))
		for q := range 4 {
			require.NoError(t, w.Measure(q, q))
			assert.InDelta(t, 1, w.state.Norm(), 1e-6, "shot %d after measuring %d", shot, q)
		}
		assert.Equal(t, w.classical[0], w.classical[3])
	}
}

func TestWorker_MeasurementCollapses(t *testing.T) {
	w := newWorker()
	w.reset(2, 2, 5, 0)
	require.NoError(t, w.Hadamard(0))
	require.NoError(t, w.Cnot(0, 1))
	require.NoError(t, w.Measure(0, 0))

	outcome := int(w.classical[0])
	for i, a := range w.state.Amplitudes() {
		if BitOf(i, 0, 2) != outcome {
			assert.Equal(t, complex128(0), a)
		}
	}
	// the partner is now certain
	require.NoError(t, w.Measure(1, 1))
	assert.Equal(t, w.classical[0], w.classical[1])
}

func TestWorker_ErrorsDoNotCorruptLaterShots(t *testing.T) {
	ops, err := flow.Flatten(testutil.Bell(t))
	require.NoError(t, err)

	w := newWorker()
	w.reset(2, 2, 0, 0)
	require.NoError(t, w.Hadamard(1))

	err = w.Cnot(0, 5)
	assert.ErrorIs(t, err, ir.ErrIndexOutOfRange)
	err = w.Measure(0, 2)
	assert.ErrorIs(t, err, ir.ErrIndexOutOfRange)
	err = w.Measure(-1, 0)
	assert.ErrorIs(t, err, ir.ErrIndexOutOfRange)

	// a failed op leaves the state as it was
	assert.InDelta(t, 0.5, w.state.Probability(0b01), 1e-12)

	for shot := range 20 {
		out, err := w.shot(ops, 2, 2, 0, shot)
		require.NoError(t, err)
		assert.Equal(t, out[0], out[1])
	}
}

func TestWorker_SameSeedAndShotReproduce(t *testing.T) {
	ops, err := flow.Flatten(testutil.GHZ(t, 3))
	require.NoError(t, err)

	w1, w2 := newWorker(), newWorker()
	for shot := range 30 {
		a, err := w1.shot(ops, 3, 3, 123, shot)
		require.NoError(t, err)
		_, err = w2.shot(ops, 3, 3, 123, 29-shot)
		require.NoError(t, err)
		c, err := w2.shot(ops, 3, 3, 123, shot)
		require.NoError(t, err)
		assert.Equal(t, a, c, "shot %d depends only on (seed, shot)", shot)
	}
}

func TestWorker_MeasureOnUniformSuperposition(t *testing.T) {
	w := newWorker()
	ones := 0
	const shots = 2000
	for shot := range shots {
		w.reset(1, 1, 99, shot)
		require.NoError(t, w.Hadamard(0))
		require.NoError(t, w.Measure(0, 0))
		ones += int(w.classical[0])
	}
	assert.InDelta(t, shots/2, ones, 5*math.Sqrt(shots)/2)
}

func TestWorker_KernelCacheStaysWithinBudget(t *testing.T) {
	w := newWorker()
	w.budget = 40 // a padded 3-qubit rx has 16 nonzero entries
	w.reset(3, 0, 5, 0)

	for i := range 100 {
		require.NoError(t, w.RotateX(0, 0.01*float64(i+1)))

		total := 0
		for _, op := range w.kernels {
			total += op.NNZ()
		}
		assert.Equal(t, total, w.cached, "after angle %d", i)
		assert.LessOrEqual(t, w.cached, w.budget, "after angle %d", i)
		assert.LessOrEqual(t, len(w.kernels), 2, "after angle %d", i)
	}
	assert.InDelta(t, 1, w.state.Norm(), 1e-9)
}

func TestWorker_OversizedKernelNotCached(t *testing.T) {
	w := newWorker()
	w.budget = 4 // a padded 3-qubit X has 8
	w.reset(3, 0, 0, 0)

	require.NoError(t, w.PauliX(0))
	assert.Empty(t, w.kernels)
	assert.Zero(t, w.cached)
	assert.Equal(t, complex128(1), w.state.At(4), "X on qubit 0 still applies")
}

func TestWorker_WidthChangeResetsCacheSize(t *testing.T) {
	w := newWorker()
	w.reset(2, 0, 0, 0)
	require.NoError(t, w.Hadamard(1))
	require.Positive(t, w.cached)

	w.reset(3, 0, 0, 0)
	assert.Zero(t, w.cached)
}
