// Package health classifies the control-plane daemon from its PID file,
// process liveness, and HTTP health endpoint.
//
// # Daemon Status
//
//	StatusNotRunning - no PID file (or an unreadable one)
//	StatusStale      - PID file names a process that no longer exists
//	StatusUnhealthy  - process alive but /health does not answer 200
//	StatusHealthy    - process alive and /health answers 200
//
// # Collaborators
//
// ProcessChecker and Prober are interfaces so callers can substitute fakes.
// OSProcessChecker uses kill(2) with signal 0 for liveness and SIGTERM for
// termination. HTTPProber issues GET /health on the loopback interface with
// a two second timeout.
//
//	report := health.Classify(ctx, fs, pidFile, port, health.OSProcessChecker{}, health.NewHTTPProber())
package health
