package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/ai-pod/internal/system"
)

// Status is the classified state of the control-plane daemon
type Status string

const (
	StatusNotRunning Status = "not-running"
	StatusStale      Status = "stale"
	StatusUnhealthy  Status = "unhealthy"
	StatusHealthy    Status = "healthy"

	// ProbeTimeout bounds a single health probe.
	ProbeTimeout = 2 * time.Second
)

// ProcessChecker tests and signals processes by PID.
type ProcessChecker interface {
	// Alive reports whether a process with pid exists.
	Alive(pid int) bool

	// Terminate sends the polite termination signal.
	Terminate(pid int) error
}

// Prober checks the daemon's health endpoint.
type Prober interface {
	Probe(ctx context.Context, port int) error
}

// OSProcessChecker implements ProcessChecker with kill(2).
type OSProcessChecker struct{}

// Alive sends signal 0, which checks for existence without delivering
// anything.
func (OSProcessChecker) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// Terminate sends SIGTERM.
func (OSProcessChecker) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	return unix.Kill(pid, unix.SIGTERM)
}

// HTTPProber probes GET http://<Host>:<port>/health.
type HTTPProber struct {
	Host   string
	Client *http.Client
}

// NewHTTPProber returns a prober for the loopback interface.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		Host:   "127.0.0.1",
		Client: &http.Client{Timeout: ProbeTimeout},
	}
}

// Probe returns nil when /health answers 200.
func (p *HTTPProber) Probe(ctx context.Context, port int) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/health", p.Host, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %s", resp.Status)
	}
	return nil
}

// DaemonReport is a read-only snapshot of the daemon's state.
type DaemonReport struct {
	Status         Status `json:"status" yaml:"status"`
	PID            int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	PIDFilePresent bool   `json:"pidFilePresent" yaml:"pidFilePresent"`
	ProcessAlive   bool   `json:"processAlive" yaml:"processAlive"`
	Healthy        bool   `json:"healthy" yaml:"healthy"`
	Port           int    `json:"port" yaml:"port"`
	ProbeError     string `json:"probeError,omitempty" yaml:"probeError,omitempty"`
}

// ErrNoPID is returned by ReadPID when the PID file is missing or does not
// hold a positive integer.
var ErrNoPID = errors.New("no pid recorded")

// ReadPID reads a PID file.
func ReadPID(fs system.FileSystem, path string) (int, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return 0, ErrNoPID
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, ErrNoPID
	}
	return pid, nil
}

// Classify inspects the PID file, the process, and the health endpoint.
// The endpoint is only probed when the process is alive.
func Classify(ctx context.Context, fs system.FileSystem, pidFile string, port int, checker ProcessChecker, prober Prober) DaemonReport {
	report := DaemonReport{Status: StatusNotRunning, Port: port}

	pid, err := ReadPID(fs, pidFile)
	if err != nil {
		report.PIDFilePresent = fs.Exists(pidFile)
		return report
	}
	report.PID = pid
	report.PIDFilePresent = true

	if !checker.Alive(pid) {
		report.Status = StatusStale
		return report
	}
	report.ProcessAlive = true

	if err := prober.Probe(ctx, port); err != nil {
		report.Status = StatusUnhealthy
		report.ProbeError = err.Error()
		return report
	}

	report.Healthy = true
	report.Status = StatusHealthy
	return report
}
