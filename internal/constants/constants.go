// Package constants holds file and process names shared across the
// supervisor and settings layers.
package constants

// Batch config and core binary naming
const (
	BatchConfigFileName = "batch_%d.json"
	SingBoxExecName     = "sing-box"
)
