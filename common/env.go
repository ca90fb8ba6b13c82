// Package common holds names shared between the warpjs CLI and its
// internal packages.
package common

// Environment variable names for configuration.
const (
	// ConfigPathEnv is the environment variable for the config file path.
	ConfigPathEnv = "WARPJS_CONFIG"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "WARPJS_DEBUG"

	// LogFormatEnv selects the log format: text, json or pretty.
	LogFormatEnv = "WARPJS_LOG_FORMAT"

	// JournalEnv is the environment variable for the journal database path.
	JournalEnv = "WARPJS_JOURNAL"

	// ScriptRootEnv confines script and module loading to a directory.
	ScriptRootEnv = "WARPJS_SCRIPT_ROOT"
)
