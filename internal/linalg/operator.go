package linalg

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/qflow/internal/ir"
)

// Entry is one stored coordinate of an Operator.
type Entry struct {
	Row   int
	Col   int
	Value complex128
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

// Operator is an immutable sparse complex square matrix.
type Operator struct {
	dim     int
	entries []Entry
}

func mustDim(dim int) {
	if dim < 0 {
		panic(fmt.Sprintf("linalg: negative dimension %d", dim))
	}
}

// Zeros returns the dim×dim zero operator.
// Panics if dim is negative.
func Zeros(dim int) *Operator {
	mustDim(dim)
	return &Operator{dim: dim}
}

// Eye returns the dim×dim identity.
// Panics if dim is negative.
func Eye(dim int) *Operator {
	mustDim(dim)
	entries := make([]Entry, dim)
	for i := range entries {
		entries[i] = Entry{Row: i, Col: i, Value: 1}
	}
	return &Operator{dim: dim, entries: entries}
}

// Reversal returns the anti-diagonal permutation mapping basis index i to
// dim-1-i. Reversal(2) is the NOT kernel.
// Panics if dim is negative.
func Reversal(dim int) *Operator {
	mustDim(dim)
	entries := make([]Entry, dim)
	for i := range entries {
		entries[i] = Entry{Row: i, Col: dim - 1 - i, Value: 1}
	}
	return &Operator{dim: dim, entries: entries}
}

// BasisProjector returns the 2×2 outer product |i⟩⟨j|.
// Returns IndexOutOfRange if i or j is not 0 or 1.
func BasisProjector(i, j int) (*Operator, error) {
	if i < 0 || i > 1 {
		return nil, ir.NewIndexError("ket", i, 2)
	}
	if j < 0 || j > 1 {
		return nil, ir.NewIndexError("bra", j, 2)
	}
	return &Operator{dim: 2, entries: []Entry{{Row: i, Col: j, Value: 1}}}, nil
}

// NewOperator builds an operator from a dense row-major square matrix,
// dropping zero entries.
// Returns DimensionMismatch if any row length differs from the row count.
func NewOperator(dense [][]complex128) (*Operator, error) {
	dim := len(dense)
	op := &Operator{dim: dim}
	for r, row := range dense {
		if len(row) != dim {
			return nil, ir.NewDimensionError(fmt.Sprintf("row %d", r), len(row), dim)
		}
		for c, v := range row {
			if v != 0 {
				op.entries = append(op.entries, Entry{Row: r, Col: c, Value: v})
			}
		}
	}
	return op, nil
}

// Dim returns the operator dimension.
func (a *Operator) Dim() int { return a.dim }

// NNZ returns the number of stored entries.
func (a *Operator) NNZ() int { return len(a.entries) }

// Entries returns a copy of the stored entries in (row, col) order.
func (a *Operator) Entries() []Entry { return slices.Clone(a.entries) }

// At returns the value at (row, col), zero if nothing is stored there.
func (a *Operator) At(row, col int) complex128 {
	i, found := slices.BinarySearchFunc(a.entries, Entry{Row: row, Col: col}, compareEntries)
	if !found {
		return 0
	}
	return a.entries[i].Value
}

// Kronecker returns the tensor product a ⊗ b of dimension a.Dim()*b.Dim().
//
// Every stored (rA, cA, vA) pairs with every stored (rB, cB, vB) to give
// (rA*dimB+rB, cA*dimB+cB, vA*vB). Cost is proportional to the product of
// the stored counts plus a sort to restore canonical order.
func (a *Operator) Kronecker(b *Operator) *Operator {
	out := &Operator{
		dim:     a.dim * b.dim,
		entries: make([]Entry, 0, len(a.entries)*len(b.entries)),
	}
	for _, ea := range a.entries {
		for _, eb := range b.entries {
			v := ea.Value * eb.Value
			if v == 0 {
				continue
			}
			out.entries = append(out.entries, Entry{
				Row:   ea.Row*b.dim + eb.Row,
				Col:   ea.Col*b.dim + eb.Col,
				Value: v,
			})
		}
	}
	slices.SortFunc(out.entries, compareEntries)
	return out
}

// Add returns a + b by merging the two sorted entry lists and summing
// coincident coordinates. A sum that cancels to zero stays stored.
// Returns DimensionMismatch if the dimensions differ.
func (a *Operator) Add(b *Operator) (*Operator, error) {
	if a.dim != b.dim {
		return nil, ir.NewDimensionError("add", a.dim, b.dim)
	}

	out := &Operator{
		dim:     a.dim,
		entries: make([]Entry, 0, len(a.entries)+len(b.entries)),
	}
	i, j := 0, 0
	for i < len(a.entries) && j < len(b.entries) {
		ea, eb := a.entries[i], b.entries[j]
		switch c := compareEntries(ea, eb); {
		case c == 0:
			out.entries = append(out.entries, Entry{Row: ea.Row, Col: ea.Col, Value: ea.Value + eb.Value})
			i++
			j++
		case c < 0:
			out.entries = append(out.entries, ea)
			i++
		default:
			out.entries = append(out.entries, eb)
			j++
		}
	}
	out.entries = append(out.entries, a.entries[i:]...)
	out.entries = append(out.entries, b.entries[j:]...)
	return out, nil
}

// Scale returns s·a. Scaling by zero yields the zero operator.
func (a *Operator) Scale(s complex128) *Operator {
	if s == 0 {
		return Zeros(a.dim)
	}
	out := &Operator{dim: a.dim, entries: make([]Entry, len(a.entries))}
	for i, e := range a.entries {
		out.entries[i] = Entry{Row: e.Row, Col: e.Col, Value: s * e.Value}
	}
	return out
}

// Apply returns a new ket a|k⟩.
// Returns DimensionMismatch if k.Dim() != a.Dim().
func (a *Operator) Apply(k *Ket) (*Ket, error) {
	out := NewKet(a.dim)
	if err := a.ApplyInto(out, k); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyInto overwrites dst with a|src⟩. dst and src must be distinct kets
// of dimension a.Dim().
// Returns DimensionMismatch otherwise; dst is untouched on error.
func (a *Operator) ApplyInto(dst, src *Ket) error {
	if src.Dim() != a.dim {
		return ir.NewDimensionError("apply", a.dim, src.Dim())
	}
	if dst.Dim() != a.dim {
		return ir.NewDimensionError("apply", a.dim, dst.Dim())
	}
	dst.Zero()
	in, out := src.amps, dst.amps
	for _, e := range a.entries {
		out[e.Row] += e.Value * in[e.Col]
	}
	return nil
}

// Dense returns the operator as a row-major dense matrix.
func (a *Operator) Dense() [][]complex128 {
	out := make([][]complex128, a.dim)
	for r := range out {
		out[r] = make([]complex128, a.dim)
	}
	for _, e := range a.entries {
		out[e.Row][e.Col] += e.Value
	}
	return out
}

// String lists the stored entries, one per line.
func (a *Operator) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Operator(dim=%d, nnz=%d)\n", a.dim, len(a.entries))
	for _, e := range a.entries {
		fmt.Fprintf(&sb, "  (%d, %d) %v\n", e.Row, e.Col, e.Value)
	}
	return sb.String()
}
