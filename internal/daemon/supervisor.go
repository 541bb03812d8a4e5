// Package daemon supervises the background notification server through a
// PID file, a process-liveness check and an HTTP health probe.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/firefly-engineering/ai-pod/internal/audit"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/health"
	"github.com/firefly-engineering/ai-pod/internal/lock"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

const (
	// ServeCommand is the hidden subcommand that runs the server role.
	ServeCommand = "serve-notifications"

	// DefaultGrace is how long Start waits before its single probe.
	DefaultGrace = 500 * time.Millisecond
)

// StopResult describes what Stop did.
type StopResult string

const (
	Stopped      StopResult = "stopped"
	StaleRemoved StopResult = "stale-removed"
	NotRunning   StopResult = "not-running"
)

// Supervisor starts, stops and inspects the notification server.
type Supervisor struct {
	PIDFile  string
	LogFile  string
	LockFile string
	Port     int

	FS      system.FileSystem
	Spawner system.CommandExecutor
	Checker health.ProcessChecker
	Prober  health.Prober
	Audit   audit.Recorder

	// Executable returns the binary re-invoked in the server role.
	Executable func() (string, error)

	Grace time.Duration
	Sleep func(time.Duration)
}

// New returns a Supervisor wired to the real OS.
func New(pidFile, logFile, lockFile string, port int) *Supervisor {
	return &Supervisor{
		PIDFile:    pidFile,
		LogFile:    logFile,
		LockFile:   lockFile,
		Port:       port,
		FS:         system.DefaultFS(),
		Spawner:    system.DefaultExecutor(),
		Checker:    health.OSProcessChecker{},
		Prober:     health.NewHTTPProber(),
		Executable: os.Executable,
		Grace:      DefaultGrace,
		Sleep:      time.Sleep,
	}
}

func (s *Supervisor) record(eventType audit.EventType, details string) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(eventType, audit.ServerSubject, details); err != nil {
		logging.Debug("failed to record audit event", "type", eventType, "error", err)
	}
}

// Status classifies the server without changing anything.
func (s *Supervisor) Status(ctx context.Context) health.DaemonReport {
	return health.Classify(ctx, s.FS, s.PIDFile, s.Port, s.Checker, s.Prober)
}

// Ensure starts the server unless a healthy one is already running. The
// check and the start run under the supervisor lock.
func (s *Supervisor) Ensure(ctx context.Context) error {
	if s.LockFile != "" {
		l, err := lock.Acquire(ctx, s.LockFile)
		if err != nil {
			return poderrors.DaemonError("failed to lock notification server state", err)
		}
		defer l.Release()
	}

	report := s.Status(ctx)
	logging.Debug("notification server state", "status", report.Status, "pid", report.PID, "port", s.Port)

	switch report.Status {
	case health.StatusHealthy:
		return nil
	case health.StatusStale:
		logging.UserWarning("Removing stale notification server PID file (pid %d)", report.PID)
		if err := s.removePIDFile(); err != nil {
			return err
		}
	case health.StatusUnhealthy:
		logging.UserWarning("Notification server (pid %d) is not answering on port %d; replacing it", report.PID, s.Port)
		if err := s.Checker.Terminate(report.PID); err != nil {
			return poderrors.DaemonError(fmt.Sprintf("failed to stop unresponsive notification server (pid %d)", report.PID), err)
		}
		s.record(audit.EventDaemonStop, fmt.Sprintf("pid=%d unresponsive", report.PID))
		if err := s.removePIDFile(); err != nil {
			return err
		}
		// Give the old process a moment to release the port.
		s.Sleep(s.Grace)
	}

	return s.Start(ctx)
}

// Start spawns the server detached from this process, records its PID and
// probes it once after the grace period. A failed probe is only a warning.
func (s *Supervisor) Start(ctx context.Context) error {
	exe, err := s.Executable()
	if err != nil {
		return poderrors.DaemonError("failed to resolve executable", err)
	}

	if err := s.FS.MkdirAll(filepath.Dir(s.PIDFile), 0755); err != nil {
		return poderrors.DaemonError("failed to create state directory", err)
	}

	args := []string{ServeCommand, "--notify-port", strconv.Itoa(s.Port)}
	logging.Debug("spawning notification server", "exe", exe, "args", args, "log", s.LogFile)

	pid, err := s.Spawner.Start(exe, args, system.StartOptions{LogPath: s.LogFile, NewSession: true})
	if err != nil {
		return poderrors.DaemonError("failed to start notification server", err)
	}

	if err := s.FS.WriteFile(s.PIDFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return poderrors.DaemonError("failed to write PID file", err)
	}
	s.record(audit.EventDaemonStart, fmt.Sprintf("pid=%d port=%d", pid, s.Port))

	s.Sleep(s.Grace)

	if err := s.Prober.Probe(ctx, s.Port); err != nil {
		logging.UserWarning("Notification server (pid %d) did not answer yet: %v (see %s)", pid, err, s.LogFile)
		return nil
	}
	logging.UserSuccess("Notification server started on port %d (pid %d)", s.Port, pid)
	return nil
}

// Stop sends SIGTERM to a live server and removes the PID file. A PID file
// naming a dead process is removed without signalling anything.
func (s *Supervisor) Stop() (StopResult, error) {
	pid, err := health.ReadPID(s.FS, s.PIDFile)
	if err != nil {
		if s.FS.Exists(s.PIDFile) {
			if err := s.removePIDFile(); err != nil {
				return "", err
			}
			return StaleRemoved, nil
		}
		return NotRunning, nil
	}

	if !s.Checker.Alive(pid) {
		if err := s.removePIDFile(); err != nil {
			return "", err
		}
		return StaleRemoved, nil
	}

	if err := s.Checker.Terminate(pid); err != nil {
		return "", poderrors.DaemonError(fmt.Sprintf("failed to stop notification server (pid %d)", pid), err)
	}
	if err := s.removePIDFile(); err != nil {
		return "", err
	}
	s.record(audit.EventDaemonStop, fmt.Sprintf("pid=%d", pid))
	return Stopped, nil
}

func (s *Supervisor) removePIDFile() error {
	if err := s.FS.Remove(s.PIDFile); err != nil && !os.IsNotExist(err) {
		return poderrors.DaemonError("failed to remove PID file", err)
	}
	return nil
}
