// Package app provides the application context for ai-pod.
// It allows dependency injection for testing.
package app

import (
	"time"

	"github.com/firefly-engineering/ai-pod/internal/audit"
	"github.com/firefly-engineering/ai-pod/internal/config"
	"github.com/firefly-engineering/ai-pod/internal/container"
	"github.com/firefly-engineering/ai-pod/internal/daemon"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/health"
	"github.com/firefly-engineering/ai-pod/internal/image"
	"github.com/firefly-engineering/ai-pod/internal/lock"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/settings"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// App holds the application dependencies
type App struct {
	// Paths holds the configured paths
	Paths *config.Paths

	// Settings is the loaded config.toml plus environment overrides
	Settings *config.Settings

	// Runtime is the container runtime; nil when none could be detected
	Runtime runtime.Runtime

	FS       system.FileSystem
	Executor system.CommandExecutor

	// Daemon supervision collaborators
	Checker    health.ProcessChecker
	Prober     health.Prober
	Executable func() (string, error)
	Sleep      func(time.Duration)

	runtimeErr error
}

// Option is a function that configures the App
type Option func(*App)

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithSettings sets custom settings instead of loading config.toml
func WithSettings(s *config.Settings) Option {
	return func(a *App) {
		a.Settings = s
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithFileSystem sets the filesystem used for state files
func WithFileSystem(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// WithExecutor sets the command executor
func WithExecutor(e system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = e
	}
}

// WithDaemonProbes sets the process checker and health prober
func WithDaemonProbes(checker health.ProcessChecker, prober health.Prober) Option {
	return func(a *App) {
		a.Checker = checker
		a.Prober = prober
	}
}

// WithExecutable sets how the server binary is located
func WithExecutable(fn func() (string, error)) Option {
	return func(a *App) {
		a.Executable = fn
	}
}

// WithSleep replaces time.Sleep for the daemon grace period
func WithSleep(fn func(time.Duration)) Option {
	return func(a *App) {
		a.Sleep = fn
	}
}

// New creates a new App with the given options. Paths and settings are
// loaded when not provided. If the runtime is not provided via WithRuntime,
// it is detected; a detection failure is reported later by RequireRuntime.
func New(opts ...Option) (*App, error) {
	a := &App{}

	for _, opt := range opts {
		opt(a)
	}

	if a.Paths == nil {
		paths, err := config.DefaultPaths()
		if err != nil {
			return nil, poderrors.ConfigError("failed to resolve paths", err)
		}
		a.Paths = paths
	}

	if a.Settings == nil {
		s, err := config.LoadSettings(a.Paths.ConfigFile)
		if err != nil {
			return nil, poderrors.ConfigError("failed to load settings", err)
		}
		a.Settings = s
	}

	if a.FS == nil {
		a.FS = system.DefaultFS()
	}
	if a.Executor == nil {
		a.Executor = system.DefaultExecutor()
	}

	if a.Runtime == nil {
		rt, err := runtime.New(&runtime.Config{
			Type:     runtime.RuntimeType(a.Settings.Runtime),
			Executor: a.Executor,
		})
		if err != nil {
			logging.Debug("failed to initialize runtime", "error", err)
			a.runtimeErr = err
		} else {
			a.Runtime = rt
		}
	}

	return a, nil
}

// RequireRuntime returns the runtime or the reason none is available.
func (a *App) RequireRuntime() (runtime.Runtime, error) {
	if a.Runtime != nil {
		return a.Runtime, nil
	}
	if a.runtimeErr != nil {
		return nil, poderrors.RuntimeFailed("detect container runtime", a.runtimeErr)
	}
	return nil, poderrors.New(poderrors.ExitRuntimeError, "no container runtime configured")
}

// Audit returns the audit logger rooted at the audit directory.
func (a *App) Audit() *audit.Logger {
	return audit.NewLogger(a.Paths.AuditDir)
}

// ImageGate returns the image cache gate for the configured recipe.
func (a *App) ImageGate() (*image.Gate, error) {
	rt, err := a.RequireRuntime()
	if err != nil {
		return nil, err
	}
	recipe, err := a.Settings.RecipePath(a.Paths.ConfigDir)
	if err != nil {
		return nil, poderrors.ConfigError("invalid dockerfile setting", err)
	}
	return &image.Gate{
		Runtime:    rt,
		Tag:        a.Settings.Image,
		Recipe:     recipe,
		ContextDir: a.Paths.ConfigDir,
		RecordPath: a.Paths.ImageRecord,
		FS:         a.FS,
	}, nil
}

// Materializer returns the settings materializer for new containers.
func (a *App) Materializer() *settings.Materializer {
	return &settings.Materializer{
		HostGateway:  a.Settings.HostGateway,
		UserClaudeMD: a.Paths.UserClaudeMD,
		UserSettings: a.Paths.UserSettings,
		OutClaudeMD:  a.Paths.RuntimeClaudeMD,
		OutSettings:  a.Paths.RuntimeSettings,
		FS:           a.FS,
	}
}

// Controller returns the container lifecycle controller.
func (a *App) Controller() (*container.Controller, error) {
	rt, err := a.RequireRuntime()
	if err != nil {
		return nil, err
	}
	return &container.Controller{
		Runtime:      rt,
		Materializer: a.Materializer(),
		Image:        a.Settings.Image,
		HostGateway:  a.Settings.HostGateway,
		Locks:        lock.Dir(a.Paths.LocksDir),
		Audit:        a.Audit(),
	}, nil
}

// Supervisor returns the notification server supervisor for port.
func (a *App) Supervisor(port int) *daemon.Supervisor {
	s := daemon.New(a.Paths.PIDFile, a.Paths.LogFile, a.Paths.DaemonLock, port)
	s.FS = a.FS
	s.Spawner = a.Executor
	s.Audit = a.Audit()
	if a.Checker != nil {
		s.Checker = a.Checker
	}
	if a.Prober != nil {
		s.Prober = a.Prober
	}
	if a.Executable != nil {
		s.Executable = a.Executable
	}
	if a.Sleep != nil {
		s.Sleep = a.Sleep
	}
	return s
}

// NotifyPort returns override when set, else the configured port.
func (a *App) NotifyPort(override int) (int, error) {
	if override == 0 {
		return a.Settings.NotifyPort, nil
	}
	if err := config.ValidatePort(override); err != nil {
		return 0, poderrors.ConfigError("invalid --notify-port", err)
	}
	return override, nil
}
