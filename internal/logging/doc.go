// Package logging provides logging utilities for ai-pod.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating container", "name", name, "image", tag)
//	logging.Warn("health probe failed", "port", port, "error", err)
//
// The notification daemon runs with its stderr redirected to the daemon log
// file, so everything it logs through this package lands there.
//
// # User Output
//
// User-facing messages are prefixed with a styled status glyph:
//
//	logging.UserInfo("Workspace: %s", workspace)
//	logging.UserSuccess("Image built")
//	logging.UserWarning("Notification server may still be initializing")
//	logging.UserError("Failed to attach: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: Stdout (os.Stdout by default)
//   - UserWarning, UserError: Stderr (os.Stderr by default)
package logging
