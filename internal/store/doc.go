// Package store provides SQLite-backed run history for the simulator.
//
// Each run row records the circuit's content ID and name, register sizes,
// the seed, worker count and the circuit source text; each shot row holds one
// classical register as '0'/'1' text, bit 0 first.
//
// # Ordering
//
// Runs carry a logical seq assigned on insert. Listings order by seq, never
// by wall-clock time, so history output is stable across machines.
//
// # Replay
//
// A stored run holds everything needed to execute it again: source, seed and
// shot count. Replay re-executes a run through a caller-supplied function and
// reports the shots that differ, which checks simulator determinism.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity (shots cascade with runs)
package store
