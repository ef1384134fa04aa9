package ir

// Version constants for the schema model and engine.
const (
	// IRVersion is the schema model version.
	IRVersion = "1"

	// EngineVersion is the querylab engine version.
	EngineVersion = "0.1.0"
)
