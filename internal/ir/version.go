package ir

// Version constants for recorded traces.
const (
	// SchemaVersion is the EventRecord schema version.
	SchemaVersion = "1"

	// EngineVersion is the txbatch engine version.
	EngineVersion = "0.1.0"
)
