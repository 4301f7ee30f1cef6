package sim

import (
	"math"
	"math/cmplx"

	"github.com/roach88/qflow/internal/ir"
	"github.com/roach88/qflow/internal/linalg"
)

// BitOf returns the value of qubit in basis index for an n-qubit register.
//
// Qubit 0 is the most significant bit: in a 3-qubit register, index 0b100
// has qubit 0 set. Gate padding and measurement both follow this order.
func BitOf(index, qubit, n int) int {
	return (index >> (n - qubit - 1)) & 1
}

// Single-qubit kernels and the 2x2 projectors |i⟩⟨j| used to build
// controlled gates.
var (
	kernelH = mustOperator([][]complex128{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	})
	kernelX = linalg.Reversal(2)
	kernelY = mustOperator([][]complex128{{0, -1i}, {1i, 0}})
	kernelZ = mustOperator([][]complex128{{1, 0}, {0, -1}})

	proj00 = mustProjector(0, 0)
	proj01 = mustProjector(0, 1)
	proj10 = mustProjector(1, 0)
	proj11 = mustProjector(1, 1)
)

func mustOperator(dense [][]complex128) *linalg.Operator {
	op, err := linalg.NewOperator(dense)
	if err != nil {
		panic(err)
	}
	return op
}

func mustProjector(i, j int) *linalg.Operator {
	op, err := linalg.BasisProjector(i, j)
	if err != nil {
		panic(err)
	}
	return op
}

// phaseKernel is diag(1, e^{i·phi}).
func phaseKernel(phi float64) *linalg.Operator {
	return mustOperator([][]complex128{{1, 0}, {0, cmplx.Exp(complex(0, phi))}})
}

// rotateXKernel is exp(-i·theta·X/2).
func rotateXKernel(theta float64) *linalg.Operator {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return mustOperator([][]complex128{{c, s}, {s, c}})
}

func eyeQubits(k int) *linalg.Operator {
	return linalg.Eye(1 << k)
}

// singleQubit pads kernel onto qubit q of an n-qubit register.
func singleQubit(kernel *linalg.Operator, q, n int) *linalg.Operator {
	return linalg.Pad(kernel, 1<<q, 1<<(n-q-1))
}

// cnotOperator builds the full-register CNOT.
//
// The kernel covers the block from the lower to the higher operand. Its
// "control = 0" term is a projector next to an identity; its "control = 1"
// term is a projector and the bit flip with identity over the qubits
// strictly between them.
func cnotOperator(control, target, n int) (*linalg.Operator, error) {
	var (
		off, on       *linalg.Operator
		before, after int
	)
	switch {
	case control < target:
		gap := target - control
		off = proj00.Kronecker(eyeQubits(gap))
		on = linalg.KroneckerAll(proj11, eyeQubits(gap-1), kernelX)
		before, after = 1<<control, 1<<(n-target-1)
	case control > target:
		gap := control - target
		off = eyeQubits(gap).Kronecker(proj00)
		on = linalg.KroneckerAll(kernelX, eyeQubits(gap-1), proj11)
		before, after = 1<<target, 1<<(n-control-1)
	default:
		return nil, ir.NewOperandError(ir.KindCnot, "control equals target")
	}
	kernel, err := off.Add(on)
	if err != nil {
		return nil, err
	}
	return linalg.Pad(kernel, before, after), nil
}

// block builds the tensor product over qubits lo..hi, placing factors[q]
// at qubit q and identity everywhere else. Runs of identity are merged into
// one Eye.
func block(lo, hi int, factors map[int]*linalg.Operator) *linalg.Operator {
	out := linalg.Eye(1)
	run := 0
	for q := lo; q <= hi; q++ {
		f, ok := factors[q]
		if !ok {
			run++
			continue
		}
		if run > 0 {
			out = out.Kronecker(eyeQubits(run))
			run = 0
		}
		out = out.Kronecker(f)
	}
	if run > 0 {
		out = out.Kronecker(eyeQubits(run))
	}
	return out
}

// swapOperator is Σ |i⟩⟨j| ⊗ I ⊗ |j⟩⟨i| over i, j in {0, 1}.
func swapOperator(a, b, n int) (*linalg.Operator, error) {
	if a == b {
		return nil, ir.NewOperandError(ir.KindSwap, "qubits are equal")
	}
	lo, hi := min(a, b), max(a, b)
	kernel, err := linalg.Sum(
		block(lo, hi, map[int]*linalg.Operator{lo: proj00, hi: proj00}),
		block(lo, hi, map[int]*linalg.Operator{lo: proj01, hi: proj10}),
		block(lo, hi, map[int]*linalg.Operator{lo: proj10, hi: proj01}),
		block(lo, hi, map[int]*linalg.Operator{lo: proj11, hi: proj11}),
	)
	if err != nil {
		return nil, err
	}
	return linalg.Pad(kernel, 1<<lo, 1<<(n-hi-1)), nil
}

// toffoliOperator flips target only in the term where both controls
// project onto 1; the other three control patterns act as identity.
func toffoliOperator(c1, c2, target, n int) (*linalg.Operator, error) {
	if c1 == c2 || c1 == target || c2 == target {
		return nil, ir.NewOperandError(ir.KindToffoli, "operands must be distinct")
	}
	lo := min(c1, c2, target)
	hi := max(c1, c2, target)
	kernel, err := linalg.Sum(
		block(lo, hi, map[int]*linalg.Operator{c1: proj00, c2: proj00}),
		block(lo, hi, map[int]*linalg.Operator{c1: proj00, c2: proj11}),
		block(lo, hi, map[int]*linalg.Operator{c1: proj11, c2: proj00}),
		block(lo, hi, map[int]*linalg.Operator{c1: proj11, c2: proj11, target: kernelX}),
	)
	if err != nil {
		return nil, err
	}
	return linalg.Pad(kernel, 1<<lo, 1<<(n-hi-1)), nil
}
