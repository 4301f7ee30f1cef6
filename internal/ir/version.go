package ir

// Version constants for the IR schema and simulator.
const (
	// IRVersion is the circuit IR schema version.
	IRVersion = "1"

	// EngineVersion is the qflow simulator version.
	EngineVersion = "0.1.0"
)
