package runtime

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"golang.org/x/term"

	"github.com/firefly-engineering/ai-pod/internal/logging"
)

// inlineRecipeName is the name a recipe outside the build context is given
// inside the uploaded tar.
const inlineRecipeName = ".ai-pod.Dockerfile"

// EngineRuntime implements the Runtime interface by talking to the Docker
// Engine API directly (DOCKER_HOST, or the default socket).
type EngineRuntime struct {
	cli *client.Client

	// Stdin and Stdout are used for builds and attach sessions.
	Stdin  *os.File
	Stdout *os.File
}

// NewEngineRuntime connects to the engine configured in the environment.
func NewEngineRuntime() (*EngineRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine client: %w", err)
	}
	return NewEngineRuntimeWithClient(cli), nil
}

// NewEngineRuntimeWithClient wraps an existing client.
func NewEngineRuntimeWithClient(cli *client.Client) *EngineRuntime {
	return &EngineRuntime{
		cli:    cli,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
}

// Close releases the client's connections.
func (r *EngineRuntime) Close() error {
	return r.cli.Close()
}

// Name returns the runtime identifier
func (r *EngineRuntime) Name() string {
	return "engine"
}

// Version returns the engine's server version
func (r *EngineRuntime) Version(ctx context.Context) (string, error) {
	v, err := r.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("engine version failed: %w", err)
	}
	return v.Version, nil
}

// ImageExists reports whether an image with the given tag is present
func (r *EngineRuntime) ImageExists(ctx context.Context, tag string) (bool, error) {
	_, err := r.cli.ImageInspect(ctx, tag)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("engine image inspect failed: %w", err)
	}
	return true, nil
}

// BuildImage uploads the context directory and streams build progress
func (r *EngineRuntime) BuildImage(ctx context.Context, opts BuildOptions) error {
	buildCtx, dockerfile, err := buildContext(opts.ContextDir, opts.Recipe)
	if err != nil {
		return err
	}

	logging.Debug("building image", "tag", opts.Tag, "dockerfile", dockerfile)
	resp, err := r.cli.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:       []string{opts.Tag},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("engine build failed: %w", err)
	}
	defer resp.Body.Close()

	fd := r.Stdout.Fd()
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, r.Stdout, fd, term.IsTerminal(int(fd)), nil); err != nil {
		return fmt.Errorf("engine build failed: %w", err)
	}
	return nil
}

// buildContext tars contextDir. When recipe lies outside contextDir it is
// added under inlineRecipeName. It returns the tar and the Dockerfile path
// relative to the context root.
func buildContext(contextDir, recipe string) (io.Reader, string, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.WalkDir(contextDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(contextDir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return copyFileTo(tw, path)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to pack build context: %w", err)
	}

	dockerfile, err := filepath.Rel(contextDir, recipe)
	if err != nil || strings.HasPrefix(dockerfile, "..") {
		data, err := os.ReadFile(recipe)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read recipe: %w", err)
		}
		if err := writeTarFile(tw, inlineRecipeName, data, 0644); err != nil {
			return nil, "", err
		}
		dockerfile = inlineRecipeName
	}

	if err := tw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, filepath.ToSlash(dockerfile), nil
}

func copyFileTo(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func writeTarFile(tw *tar.Writer, name string, data []byte, mode int64) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    mode,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// Exists reports whether a container exists in any state
func (r *EngineRuntime) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("engine inspect failed: %w", err)
	}
	return true, nil
}

// IsRunning checks if a container is currently running
func (r *EngineRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	info, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("engine inspect failed: %w", err)
	}
	return info.ContainerJSONBase != nil && info.State != nil && info.State.Running, nil
}

// Create creates a container and starts it detached
func (r *EngineRuntime) Create(ctx context.Context, opts CreateOptions) error {
	binds := make([]string, len(opts.Mounts))
	for i, m := range opts.Mounts {
		binds[i] = m.String()
	}
	useInit := opts.Init

	cfg := &container.Config{
		Image:     opts.Image,
		Env:       opts.Env,
		Tty:       true,
		OpenStdin: true,
	}
	hostCfg := &container.HostConfig{
		Binds:      binds,
		ExtraHosts: opts.ExtraHosts,
		Init:       &useInit,
	}

	if _, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name); err != nil {
		return fmt.Errorf("engine create failed: %w", err)
	}
	return r.Start(ctx, opts.Name)
}

// Start starts an existing container
func (r *EngineRuntime) Start(ctx context.Context, name string) error {
	if err := r.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("engine start failed: %w", err)
	}
	return nil
}

// Attach connects the terminal to the container's TTY until it detaches or
// the main process exits.
func (r *EngineRuntime) Attach(ctx context.Context, name string) error {
	resp, err := r.cli.ContainerAttach(ctx, name, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return fmt.Errorf("engine attach failed: %w", err)
	}
	defer resp.Close()

	fd := int(r.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()

		if w, h, err := term.GetSize(fd); err == nil {
			_ = r.cli.ContainerResize(ctx, name, container.ResizeOptions{Width: uint(w), Height: uint(h)})
		}
	}

	go func() {
		_, _ = io.Copy(resp.Conn, r.Stdin)
		_ = resp.CloseWrite()
	}()

	// Containers are created with a TTY, so the stream is not multiplexed.
	if _, err := io.Copy(r.Stdout, resp.Reader); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("engine attach failed: %w", err)
	}
	return nil
}

// Stop stops a running container
func (r *EngineRuntime) Stop(ctx context.Context, name string) error {
	if err := r.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return fmt.Errorf("engine stop failed: %w", err)
	}
	return nil
}

// Remove removes a stopped container
func (r *EngineRuntime) Remove(ctx context.Context, name string) error {
	if err := r.cli.ContainerRemove(ctx, name, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("engine remove failed: %w", err)
	}
	return nil
}

// RemoveVolume removes a named volume
func (r *EngineRuntime) RemoveVolume(ctx context.Context, name string) error {
	if err := r.cli.VolumeRemove(ctx, name, false); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("volume %s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("engine volume remove failed: %w", err)
	}
	return nil
}

// CopyTo copies a host file into a container
func (r *EngineRuntime) CopyTo(ctx context.Context, name, hostPath, containerPath string) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", hostPath, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeTarFile(tw, filepath.Base(containerPath), data, 0644); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	dir := filepath.Dir(containerPath)
	if err := r.cli.CopyToContainer(ctx, name, dir, &buf, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("engine copy failed: %w", err)
	}
	return nil
}

// List returns containers whose name starts with prefix
func (r *EngineRuntime) List(ctx context.Context, prefix string) ([]*ContainerInfo, error) {
	summaries, err := r.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("engine list failed: %w", err)
	}

	var containers []*ContainerInfo
	for _, s := range summaries {
		for _, n := range s.Names {
			n = strings.TrimPrefix(n, "/")
			if !strings.HasPrefix(n, prefix) {
				continue
			}
			containers = append(containers, &ContainerInfo{
				Name:      n,
				Status:    ParseStatus(string(s.State)),
				Detail:    s.Status,
				CreatedAt: time.Unix(s.Created, 0).UTC().Format(time.RFC3339),
			})
			break
		}
	}
	return containers, nil
}

// Ensure EngineRuntime implements Runtime
var _ Runtime = (*EngineRuntime)(nil)
