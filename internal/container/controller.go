// Package container drives the lifecycle of the one container owned by a
// workspace: create it when absent, start it when stopped, then attach.
package container

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/firefly-engineering/ai-pod/internal/audit"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/identity"
	"github.com/firefly-engineering/ai-pod/internal/lock"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/settings"
)

const (
	// WorkspaceTarget is where the workspace is mounted.
	WorkspaceTarget = "/app"

	// WorkspaceMountOptions relabels the bind mount for SELinux hosts.
	WorkspaceMountOptions = "Z"
)

// State is the observed state of a workspace's container.
type State int

const (
	Absent State = iota
	Stopped
	Running
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Probe folds the runtime's existence and running checks into a State.
func Probe(ctx context.Context, rt runtime.Runtime, name string) (State, error) {
	exists, err := rt.Exists(ctx, name)
	if err != nil {
		return Absent, poderrors.RuntimeFailed("inspect "+name, err)
	}
	if !exists {
		return Absent, nil
	}

	running, err := rt.IsRunning(ctx, name)
	if err != nil {
		return Absent, poderrors.RuntimeFailed("inspect "+name, err)
	}
	if running {
		return Running, nil
	}
	return Stopped, nil
}

// Materializer produces the files copied into a new container.
type Materializer interface {
	Materialize(port int) (settings.Files, error)
}

// Controller creates, starts, attaches to and removes workspace containers.
type Controller struct {
	Runtime      runtime.Runtime
	Materializer Materializer

	// Image is the tag new containers are created from.
	Image string

	// HostGateway is the alias mapped to the host inside containers.
	HostGateway string

	// Locks serializes creation per identity. Nil disables locking.
	Locks lock.Locker

	// Audit receives lifecycle events. Nil discards them.
	Audit audit.Recorder
}

func (c *Controller) record(eventType audit.EventType, subject, details string) {
	rec := c.Audit
	if rec == nil {
		rec = audit.Discard
	}
	if err := rec.Record(eventType, subject, details); err != nil {
		logging.Debug("failed to record audit event", "type", eventType, "subject", subject, "error", err)
	}
}

// CreateOptions returns the options a new container for id is created with.
func (c *Controller) CreateOptions(id identity.Identity, port int) runtime.CreateOptions {
	portStr := strconv.Itoa(port)
	return runtime.CreateOptions{
		Name:  id.Name,
		Image: c.Image,
		Mounts: []runtime.Mount{
			{Source: id.Workspace, Target: WorkspaceTarget, Options: WorkspaceMountOptions},
			{Source: id.Volume(), Target: settings.ContainerDir},
		},
		ExtraHosts: []string{runtime.HostGatewayEntry(c.HostGateway)},
		Env: []string{
			"HOST_GATEWAY=" + c.HostGateway,
			"NOTIFY_URL=http://" + c.HostGateway + ":" + portStr + "/notify",
			"NOTIFY_PORT=" + portStr,
		},
		Init: true,
	}
}

// Launch brings id's container to the running state and attaches to it.
// port is the notification server port the container calls back on.
func (c *Controller) Launch(ctx context.Context, id identity.Identity, port int) error {
	if err := c.prepare(ctx, id, port); err != nil {
		return err
	}

	logging.Debug("attaching", "container", id.Name)
	c.record(audit.EventAttach, id.Name, "")
	if err := c.Runtime.Attach(ctx, id.Name); err != nil {
		return poderrors.ContainerFailed("attach to "+id.Name, err)
	}
	return nil
}

// prepare runs the probe-create-copy section under the identity's lock so
// two launches for one workspace cannot both create.
func (c *Controller) prepare(ctx context.Context, id identity.Identity, port int) error {
	if c.Locks != nil {
		l, err := c.Locks.Acquire(ctx, id.LockName())
		if err != nil {
			return poderrors.ContainerFailed("lock "+id.Name, err)
		}
		defer l.Release()
	}

	state, err := Probe(ctx, c.Runtime, id.Name)
	if err != nil {
		return err
	}
	logging.Debug("container state", "container", id.Name, "state", state)

	switch state {
	case Absent:
		return c.create(ctx, id, port)
	case Stopped:
		logging.UserInfo("Starting existing container %s...", id.Name)
		if err := c.Runtime.Start(ctx, id.Name); err != nil {
			return poderrors.ContainerFailed("start "+id.Name, err)
		}
		c.record(audit.EventStart, id.Name, "")
	}
	return nil
}

func (c *Controller) create(ctx context.Context, id identity.Identity, port int) error {
	files, err := c.Materializer.Materialize(port)
	if err != nil {
		return poderrors.ContainerFailed("prepare settings for "+id.Name, err)
	}

	logging.UserInfo("Creating container %s for %s...", id.Name, id.Workspace)
	opts := c.CreateOptions(id, port)
	if err := c.Runtime.Create(ctx, opts); err != nil {
		return poderrors.ContainerFailed("create "+id.Name, err)
	}
	c.record(audit.EventCreate, id.Name, id.Workspace)

	copies := []struct{ src, dst string }{
		{files.ClaudeMD, files.ClaudeMDDest},
		{files.Settings, files.SettingsDest},
	}
	for _, cp := range copies {
		logging.Debug("copying into container", "container", id.Name, "src", cp.src, "dst", cp.dst)
		if err := c.Runtime.CopyTo(ctx, id.Name, cp.src, cp.dst); err != nil {
			return poderrors.ContainerFailed(fmt.Sprintf("copy %s into %s", cp.dst, id.Name), err)
		}
	}
	return nil
}

// List returns every container carrying the identity prefix.
func (c *Controller) List(ctx context.Context) ([]*runtime.ContainerInfo, error) {
	infos, err := c.Runtime.List(ctx, identity.Prefix)
	if err != nil {
		return nil, poderrors.RuntimeFailed("list containers", err)
	}
	return infos, nil
}

// CleanResult reports what Clean removed.
type CleanResult struct {
	Existed       bool
	WasRunning    bool
	VolumeRemoved bool
}

// Clean stops and removes id's container and its data volume. An absent
// container is left alone and reported with Existed false.
func (c *Controller) Clean(ctx context.Context, id identity.Identity) (CleanResult, error) {
	var result CleanResult

	state, err := Probe(ctx, c.Runtime, id.Name)
	if err != nil {
		return result, err
	}
	if state == Absent {
		return result, nil
	}
	result.Existed = true

	if state == Running {
		result.WasRunning = true
		logging.UserInfo("Stopping %s...", id.Name)
		if err := c.Runtime.Stop(ctx, id.Name); err != nil {
			return result, poderrors.ContainerFailed("stop "+id.Name, err)
		}
	}

	logging.UserInfo("Removing %s...", id.Name)
	if err := c.Runtime.Remove(ctx, id.Name); err != nil {
		return result, poderrors.ContainerFailed("remove "+id.Name, err)
	}

	err = c.Runtime.RemoveVolume(ctx, id.Volume())
	switch {
	case err == nil:
		result.VolumeRemoved = true
	case errors.Is(err, runtime.ErrNotFound):
		logging.Debug("volume already absent", "volume", id.Volume())
	default:
		return result, poderrors.ContainerFailed("remove volume "+id.Volume(), err)
	}

	details := "volume kept"
	if result.VolumeRemoved {
		details = "volume removed"
	}
	c.record(audit.EventClean, id.Name, details)
	return result, nil
}
