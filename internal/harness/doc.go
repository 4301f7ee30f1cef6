// Package harness runs conformance scenarios against the simulator.
//
// A scenario names a circuit file, fixes a seed and shot count, and states
// what the shots must satisfy. Each run also replays itself from the stored
// seed and fails if any shot differs, so every scenario checks determinism.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: bell_correlated
//	description: "Both halves of a Bell pair agree"
//	circuit: ../circuits/bell.yaml
//	seed: 7
//	shots: 500
//	workers: 4
//	assertions:
//	  - type: outcomes
//	    values: ["00", "11"]
//	  - type: correlated
//	    bits: [0, 1]
//	  - type: probability
//	    bit: 0
//	    expect: 0.5
//	    tolerance: 0.08
//	  - type: always
//	    pattern: "1.0"
//	  - type: count
//	    value: "11"
//	    min: 200
//	    max: 300
//
// Register values are written bit 0 first, as sim.FormatBits prints them.
//
// # Golden Files
//
// RunWithGolden stores the histogram as JSON under testdata/golden. Only
// the scenario name, seed, shot count and histogram are recorded, so golden
// files change only when simulator output changes.
package harness
