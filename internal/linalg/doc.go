// Package linalg provides the sparse complex operator algebra and the dense
// state vector used by the simulator.
//
// An Operator is an immutable square matrix stored as coordinate entries
// sorted by (row, col), with no duplicate coordinates. Constructors never
// store exact zeros; Add may, when two entries cancel, and that is allowed.
//
// A Ket is a dense vector of complex amplitudes. Unlike Operator it is
// mutable: the simulator zeroes, collapses and renormalizes it in place.
//
// Dimension errors are reported as ir.ErrDimensionMismatch.
package linalg
