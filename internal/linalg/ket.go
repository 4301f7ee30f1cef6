package linalg

import (
	"math"
	"slices"

	"github.com/roach88/qflow/internal/ir"
)

// Ket is a dense vector of complex amplitudes indexed by basis state.
type Ket struct {
	amps []complex128
}

// NewKet returns the zero vector of dimension dim.
func NewKet(dim int) *Ket {
	mustDim(dim)
	return &Ket{amps: make([]complex128, dim)}
}

// KetOf returns a ket holding a copy of amps.
func KetOf(amps ...complex128) *Ket {
	return &Ket{amps: slices.Clone(amps)}
}

// Dim returns the vector dimension.
func (k *Ket) Dim() int { return len(k.amps) }

// At returns amplitude i.
func (k *Ket) At(i int) complex128 { return k.amps[i] }

// Set overwrites amplitude i.
func (k *Ket) Set(i int, v complex128) { k.amps[i] = v }

// Amplitudes returns the live backing slice. Writes through it modify k.
func (k *Ket) Amplitudes() []complex128 { return k.amps }

// Probability returns |amplitude i|².
func (k *Ket) Probability(i int) float64 {
	a := k.amps[i]
	return real(a)*real(a) + imag(a)*imag(a)
}

// Zero sets every amplitude to 0 without reallocating.
func (k *Ket) Zero() {
	clear(k.amps)
}

// Norm returns the Euclidean norm.
func (k *Ket) Norm() float64 {
	var sum float64
	for i := range k.amps {
		sum += k.Probability(i)
	}
	return math.Sqrt(sum)
}

// Normalize divides every amplitude by the norm and returns the norm it
// divided by. A zero vector is left unchanged and 0 is returned.
func (k *Ket) Normalize() float64 {
	norm := k.Norm()
	if norm == 0 {
		return 0
	}
	inv := complex(1/norm, 0)
	for i := range k.amps {
		k.amps[i] *= inv
	}
	return norm
}

// CopyFrom overwrites k with the amplitudes of src.
// Returns DimensionMismatch if the dimensions differ.
func (k *Ket) CopyFrom(src *Ket) error {
	if src.Dim() != k.Dim() {
		return ir.NewDimensionError("copy", k.Dim(), src.Dim())
	}
	copy(k.amps, src.amps)
	return nil
}

// Clone returns an independent copy of k.
func (k *Ket) Clone() *Ket {
	return &Ket{amps: slices.Clone(k.amps)}
}
