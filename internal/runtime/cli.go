package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// listFormat is the Go template passed to "ps --format".
const listFormat = "{{.Names}}\t{{.State}}\t{{.Status}}\t{{.CreatedAt}}"

// notFoundMarkers are the stderr phrases podman and docker print for
// missing containers, images, and volumes. Generic fragments such as
// "no such file" are excluded: they appear in socket connection errors.
var notFoundMarkers = []string{
	"no such container",
	"no such image",
	"no such object",
	"no such volume",
	"image not known",
	"no container with name or id",
	"no volume with name",
}

// CLIRuntime implements the Runtime interface by invoking the podman or
// docker command-line client.
type CLIRuntime struct {
	// Command is the container command to use (docker or podman)
	Command string

	// Executor runs the commands
	Executor system.CommandExecutor
}

// NewCLIRuntime creates a runtime that shells out to command.
func NewCLIRuntime(command string, executor system.CommandExecutor) *CLIRuntime {
	if executor == nil {
		executor = system.DefaultExecutor()
	}
	return &CLIRuntime{Command: command, Executor: executor}
}

// Name returns the runtime identifier
func (r *CLIRuntime) Name() string {
	return r.Command
}

// run executes a query command and returns its trimmed stdout.
func (r *CLIRuntime) run(ctx context.Context, args ...string) (string, error) {
	logging.Debug("running", "cmd", shellquote.Join(append([]string{r.Command}, args...)...))

	out, err := r.Executor.Output(ctx, r.Command, args...)
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

// interactive executes a command wired to the terminal.
func (r *CLIRuntime) interactive(ctx context.Context, args ...string) error {
	logging.Debug("running", "cmd", shellquote.Join(append([]string{r.Command}, args...)...))

	if err := r.Executor.ExecuteInteractive(ctx, r.Command, args...); err != nil {
		return fmt.Errorf("%s %s failed: %w", r.Command, args[0], err)
	}
	return nil
}

// isNotFound reports whether err is the runtime saying an object is missing.
func isNotFound(err error) bool {
	var cmdErr *system.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	for _, marker := range notFoundMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

// Version returns the client version reported by the runtime
func (r *CLIRuntime) Version(ctx context.Context) (string, error) {
	return r.run(ctx, "version", "--format", "{{.Client.Version}}")
}

// ImageExists reports whether an image with the given tag is present
func (r *CLIRuntime) ImageExists(ctx context.Context, tag string) (bool, error) {
	_, err := r.run(ctx, "image", "inspect", "--format", "{{.Id}}", tag)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BuildImage builds an image, streaming progress to the terminal
func (r *CLIRuntime) BuildImage(ctx context.Context, opts BuildOptions) error {
	return r.interactive(ctx, "build", "-t", opts.Tag, "-f", opts.Recipe, opts.ContextDir)
}

// Exists reports whether a container exists in any state. Empty output
// means absent; any failure of the query is an error.
func (r *CLIRuntime) Exists(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "ps", "-a", "--filter", "name=^"+name+"$", "--format", "{{.Names}}")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// IsRunning checks if a container is currently running
func (r *CLIRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, "container", "inspect", "--format", "{{.State.Running}}", name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return out == "true", nil
}

// createArgs builds the "run" argument list for opts.
func createArgs(opts CreateOptions) []string {
	args := []string{"run", "-d", "-i", "-t"}
	if opts.Init {
		args = append(args, "--init")
	}
	args = append(args, "--name", opts.Name)

	for _, m := range opts.Mounts {
		args = append(args, "-v", m.String())
	}
	for _, h := range opts.ExtraHosts {
		args = append(args, "--add-host="+h)
	}
	for _, e := range opts.Env {
		args = append(args, "-e", e)
	}

	return append(args, opts.Image)
}

// Create creates a container and starts it detached
func (r *CLIRuntime) Create(ctx context.Context, opts CreateOptions) error {
	_, err := r.run(ctx, createArgs(opts)...)
	return err
}

// Start starts an existing container
func (r *CLIRuntime) Start(ctx context.Context, name string) error {
	_, err := r.run(ctx, "start", name)
	return err
}

// Attach connects the terminal to the container
func (r *CLIRuntime) Attach(ctx context.Context, name string) error {
	return r.interactive(ctx, "attach", name)
}

// Stop stops a running container
func (r *CLIRuntime) Stop(ctx context.Context, name string) error {
	_, err := r.run(ctx, "stop", name)
	return err
}

// Remove removes a stopped container
func (r *CLIRuntime) Remove(ctx context.Context, name string) error {
	_, err := r.run(ctx, "rm", name)
	return err
}

// RemoveVolume removes a named volume
func (r *CLIRuntime) RemoveVolume(ctx context.Context, name string) error {
	_, err := r.run(ctx, "volume", "rm", name)
	if err != nil && isNotFound(err) {
		return fmt.Errorf("volume %s: %w", name, ErrNotFound)
	}
	return err
}

// CopyTo copies a host file into a container
func (r *CLIRuntime) CopyTo(ctx context.Context, name, hostPath, containerPath string) error {
	_, err := r.run(ctx, "cp", hostPath, name+":"+containerPath)
	return err
}

// List returns containers whose name starts with prefix
func (r *CLIRuntime) List(ctx context.Context, prefix string) ([]*ContainerInfo, error) {
	output, err := r.run(ctx, "ps", "-a", "--filter", "name=^"+prefix, "--format", listFormat)
	if err != nil {
		return nil, err
	}
	return parseList(output, prefix), nil
}

// parseList parses the tab-separated output of "ps --format listFormat".
func parseList(output, prefix string) []*ContainerInfo {
	var containers []*ContainerInfo
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		for len(fields) < 4 {
			fields = append(fields, "")
		}

		name := strings.TrimSpace(fields[0])
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		containers = append(containers, &ContainerInfo{
			Name:      name,
			Status:    ParseStatus(fields[1]),
			Detail:    strings.TrimSpace(fields[2]),
			CreatedAt: strings.TrimSpace(fields[3]),
		})
	}
	return containers
}

// Ensure CLIRuntime implements Runtime
var _ Runtime = (*CLIRuntime)(nil)
