// Package launch runs the default ai-pod flow: resolve the workspace, check
// it for credentials, build the image if needed, make sure the notification
// server is up, then create or reuse the workspace container and attach.
package launch

import (
	"context"
	"fmt"

	"github.com/firefly-engineering/ai-pod/internal/app"
	"github.com/firefly-engineering/ai-pod/internal/audit"
	"github.com/firefly-engineering/ai-pod/internal/config"
	"github.com/firefly-engineering/ai-pod/internal/credentials"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/identity"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/tui"
)

// Options are the launch flags.
type Options struct {
	Workdir             string
	Rebuild             bool
	NotifyPort          int
	SkipCredentialCheck bool
}

// Result describes a finished launch.
type Result struct {
	Identity identity.Identity
	Declined bool
	Built    bool
}

// Launcher runs the launch flow against an App.
type Launcher struct {
	App *app.App

	// Scan lists credential files under a workspace.
	Scan func(root string) ([]string, error)

	// Confirm asks whether to continue despite found credentials.
	Confirm func(question string, items []string) (bool, error)
}

// New returns a Launcher using the real scanner and terminal prompt.
func New(a *app.App) *Launcher {
	return &Launcher{App: a, Scan: credentials.Scan, Confirm: tui.Confirm}
}

// Workspace resolves dir, or the current directory when empty, to its
// canonical path.
func Workspace(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path, err := identity.Canonicalize(dir)
	if err != nil {
		return "", poderrors.WorkspaceError(dir, err)
	}
	return path, nil
}

// Run executes the steps in order and stops at the first failure. A
// declined credential prompt ends the run early without an error.
func (l *Launcher) Run(ctx context.Context, opts Options) (Result, error) {
	var result Result

	port, err := l.App.NotifyPort(opts.NotifyPort)
	if err != nil {
		return result, err
	}

	workspace, err := Workspace(opts.Workdir)
	if err != nil {
		return result, err
	}
	result.Identity = identity.Derive(workspace)
	logging.UserInfo("Workspace: %s", workspace)

	if !opts.SkipCredentialCheck {
		ok, err := l.checkCredentials(workspace)
		if err != nil {
			return result, err
		}
		if !ok {
			logging.UserWarning("Aborted.")
			result.Declined = true
			return result, nil
		}
	}

	rt, err := l.App.RequireRuntime()
	if err != nil {
		return result, err
	}
	l.checkHostGateway(ctx, rt)

	built, err := Build(ctx, l.App, opts.Rebuild)
	if err != nil {
		return result, err
	}
	result.Built = built

	if err := l.App.Supervisor(port).Ensure(ctx); err != nil {
		return result, err
	}

	controller, err := l.App.Controller()
	if err != nil {
		return result, err
	}
	if err := controller.Launch(ctx, result.Identity, port); err != nil {
		return result, err
	}
	return result, nil
}

func (l *Launcher) checkCredentials(workspace string) (bool, error) {
	found, err := l.Scan(workspace)
	if err != nil {
		return false, poderrors.WorkspaceError(workspace, err)
	}
	if len(found) == 0 {
		return true, nil
	}

	question := fmt.Sprintf("Found %d potential credential file(s) in %s. They will be visible inside the container.", len(found), workspace)
	ok, err := l.Confirm(question, found)
	if err != nil {
		return false, poderrors.Wrap(poderrors.ExitGeneralError, "confirmation failed", err)
	}
	return ok, nil
}

// checkHostGateway warns when the runtime is too old to resolve the
// host-gateway alias. It never fails the launch.
func (l *Launcher) checkHostGateway(ctx context.Context, rt runtime.Runtime) {
	version, err := rt.Version(ctx)
	if err != nil {
		logging.Debug("could not read runtime version", "runtime", rt.Name(), "error", err)
		return
	}
	ok, err := runtime.SupportsHostGateway(rt.Name(), version)
	if err != nil {
		logging.Debug("could not parse runtime version", "runtime", rt.Name(), "version", version, "error", err)
		return
	}
	if !ok {
		logging.UserWarning("%s %s may not support host-gateway; containers might not reach the notification server", rt.Name(), version)
	}
}

// Build writes the default recipe if needed and runs the image gate.
func Build(ctx context.Context, a *app.App, force bool) (bool, error) {
	created, err := config.Init(a.Paths, a.Settings)
	if err != nil {
		return false, poderrors.ConfigError("failed to initialize config directory", err)
	}
	if created {
		logging.UserInfo("Wrote default Dockerfile to %s", a.Paths.ConfigDir)
	}

	gate, err := a.ImageGate()
	if err != nil {
		return false, err
	}
	built, err := gate.Ensure(ctx, force)
	if err != nil {
		return false, err
	}
	if built {
		if err := a.Audit().Record(audit.EventBuild, "image", gate.Tag); err != nil {
			logging.Debug("failed to record audit event", "error", err)
		}
	} else {
		logging.Debug("image up to date", "tag", gate.Tag)
	}
	return built, nil
}
