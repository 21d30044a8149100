package ir

// Version constants for the persisted layout and the binary.
const (
	// SchemaVersion is the store schema version recorded in PRAGMA user_version.
	SchemaVersion = 1

	// Version is the prodreg release version.
	Version = "0.1.0"
)
