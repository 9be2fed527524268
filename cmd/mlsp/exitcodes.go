package main

// Exit codes. Per-paper failures never abort a batch; a non-zero exit means
// a systemic failure (unreadable state, bad config, missing credentials).
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config file, missing API key)
	ExitStateError  = 3 // State file unreadable or corrupt
)
