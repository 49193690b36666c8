package ir

// Version constants for the compiled document schema and the runtime.
const (
	// IRVersion is the compiled document schema version this runtime reads.
	IRVersion = "1"

	// RuntimeVersion is the weft runtime version.
	RuntimeVersion = "0.1.0"
)
