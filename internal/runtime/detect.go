package runtime

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// RuntimeType identifies which container runtime to use
type RuntimeType string

const (
	RuntimePodman RuntimeType = "podman"
	RuntimeDocker RuntimeType = "docker"
	RuntimeEngine RuntimeType = "engine"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// Executor runs CLI commands; nil uses the system default
	Executor system.CommandExecutor
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{Type: RuntimeAuto}
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Detect determines which container CLI is available, preferring podman.
func Detect() (RuntimeType, error) {
	if _, err := lookPath("podman"); err == nil {
		logging.Debug("detected podman")
		return RuntimePodman, nil
	}

	if _, err := lookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return RuntimeDocker, nil
	}

	return "", fmt.Errorf("no supported container runtime found (tried: podman, docker)")
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto, it auto-detects the best runtime.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeType := cfg.Type
	if runtimeType == "" || runtimeType == RuntimeAuto {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	logging.Debug("creating runtime", "type", runtimeType)

	switch runtimeType {
	case RuntimePodman, RuntimeDocker:
		if _, err := lookPath(string(runtimeType)); err != nil {
			return nil, fmt.Errorf("%s not found in PATH (available: %s): %w", runtimeType, describe(Available()), err)
		}
		return NewCLIRuntime(string(runtimeType), cfg.Executor), nil

	case RuntimeEngine:
		return NewEngineRuntime()

	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}
}

// describe renders a runtime list for error messages.
func describe(types []RuntimeType) string {
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Available returns a list of available CLI runtimes on this system
func Available() []RuntimeType {
	var available []RuntimeType

	for _, rt := range []RuntimeType{RuntimePodman, RuntimeDocker} {
		if _, err := lookPath(string(rt)); err == nil {
			available = append(available, rt)
		}
	}

	return available
}
