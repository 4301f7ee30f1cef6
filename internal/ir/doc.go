// Package ir provides the circuit intermediate representation for qflow.
//
// This package contains type definitions and their invariants only. All other
// internal packages import ir; ir imports nothing internal. Builders produce
// circuits, flow walks them, the simulator and renderer consume them.
//
// Key design constraints:
//   - A Circuit is immutable once constructed (NewCircuit copies its input)
//   - Node is a closed sum type: Op or *Subcircuit, nothing else
//   - Op operand order encodes role (control before target) and is never reordered
//   - Every operand index is within the circuit's declared register bounds
//   - Subcircuit mappings have exactly one distinct outer index per inner index
package ir
