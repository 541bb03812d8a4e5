// Package runtime defines the container runtime interface for ai-pod.
// This abstraction allows for multiple backend implementations (podman and
// docker CLIs, the Docker Engine API) and enables testing through mocking.
package runtime

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("not found")

// ContainerStatus represents the state of a container
type ContainerStatus string

const (
	StatusRunning ContainerStatus = "running"
	StatusStopped ContainerStatus = "stopped"
	StatusUnknown ContainerStatus = "unknown"
)

// ParseStatus maps a runtime state string ("running", "exited", ...) to a
// ContainerStatus.
func ParseStatus(state string) ContainerStatus {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running":
		return StatusRunning
	case "created", "configured", "exited", "stopped", "paused", "dead":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// ContainerInfo holds information about a container
type ContainerInfo struct {
	Name      string          `json:"name" yaml:"name"`
	Status    ContainerStatus `json:"status" yaml:"status"`
	Detail    string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	CreatedAt string          `json:"createdAt" yaml:"createdAt"`
}

// Mount is a bind mount or named volume attached to a container.
type Mount struct {
	Source  string // host path, or volume name
	Target  string // path inside the container
	Options string // e.g. "Z", "ro"
}

// String renders the mount in -v / Binds form.
func (m Mount) String() string {
	if m.Options == "" {
		return m.Source + ":" + m.Target
	}
	return m.Source + ":" + m.Target + ":" + m.Options
}

// HostGatewayEntry returns the extra-hosts entry mapping alias to the host.
func HostGatewayEntry(alias string) string {
	return alias + ":host-gateway"
}

// CreateOptions holds options for creating a container
type CreateOptions struct {
	Name       string
	Image      string
	Mounts     []Mount
	ExtraHosts []string // "alias:target" entries
	Env        []string // "KEY=value" entries
	Init       bool     // run an init process as PID 1
}

// BuildOptions holds options for building an image
type BuildOptions struct {
	Tag        string
	Recipe     string // path to the Dockerfile
	ContextDir string
}

// Runtime is the interface that container backends must implement.
// All methods should be safe for concurrent use.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "podman", "docker")
	Name() string

	// Version returns the runtime's version string
	Version(ctx context.Context) (string, error)

	// ImageExists reports whether an image with the given tag is present
	ImageExists(ctx context.Context, tag string) (bool, error)

	// BuildImage builds an image, streaming progress to the terminal
	BuildImage(ctx context.Context, opts BuildOptions) error

	// Exists reports whether a container exists in any state.
	// A missing container is (false, nil).
	Exists(ctx context.Context, name string) (bool, error)

	// IsRunning checks if a container is currently running.
	// A missing container is (false, nil).
	IsRunning(ctx context.Context, name string) (bool, error)

	// Create creates a container and starts it detached
	Create(ctx context.Context, opts CreateOptions) error

	// Start starts an existing container
	Start(ctx context.Context, name string) error

	// Attach connects the terminal to the container's main process and
	// blocks until it detaches or exits
	Attach(ctx context.Context, name string) error

	// Stop stops a running container
	Stop(ctx context.Context, name string) error

	// Remove removes a stopped container
	Remove(ctx context.Context, name string) error

	// RemoveVolume removes a named volume, returning ErrNotFound if absent
	RemoveVolume(ctx context.Context, name string) error

	// CopyTo copies a host file into a container
	CopyTo(ctx context.Context, name, hostPath, containerPath string) error

	// List returns containers whose name starts with prefix
	List(ctx context.Context, prefix string) ([]*ContainerInfo, error)
}
