// Package errors provides typed errors with exit codes for ai-pod.
//
// # Error Types
//
// PodError is the base error type that wraps an error with an exit code:
//
//	type PodError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess         = 0  // Success, including a declined credential prompt
//	ExitGeneralError    = 1  // General/unknown errors
//	ExitRuntimeError    = 2  // Container runtime could not be queried or driven
//	ExitBuildFailed     = 3  // Image build failed
//	ExitContainerFailed = 4  // Create/start/copy/attach failed
//	ExitConfigError     = 5  // Configuration error
//	ExitDaemonError     = 6  // Notification daemon could not be spawned
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
