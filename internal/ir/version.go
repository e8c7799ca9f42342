package ir

// Version constants for the persisted schema and the engine.
const (
	// SchemaVersion is the persisted progress schema version. New fields are
	// additive; readers ignore fields they do not know.
	SchemaVersion = 1

	// EngineVersion is the sortie engine version.
	EngineVersion = "0.1.0"
)
