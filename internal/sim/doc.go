// Package sim executes circuits on a dense state vector.
//
// A Simulator flattens a circuit once with package flow and replays the
// flat op list for each shot on a worker. The worker keeps a 2^n amplitude
// vector, builds a full-register sparse operator for every gate by padding
// a small kernel with identities, and caches those operators up to a fixed
// budget of nonzero entries.
//
// Measurement samples one qubit, zeroes the amplitudes that disagree with
// the outcome, renormalizes, and writes the outcome to a classical bit.
// Qubit 0 is the most significant bit of a basis index (see BitOf).
//
// Supported gates: Hadamard, PauliX, PauliY, PauliZ, Phase, RotateX, Swap,
// Cnot in either operand order, Toffoli and Measure. RotateX is
// exp(-i·θ·X/2).
package sim
