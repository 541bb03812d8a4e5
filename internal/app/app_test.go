package app

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/ai-pod/internal/config"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

func testApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	dir := t.TempDir()
	base := []Option{
		WithPaths(config.NewPaths(filepath.Join(dir, "cfg"), filepath.Join(dir, "home"))),
		WithSettings(config.DefaultSettings()),
		WithRuntime(runtime.NewMockRuntime()),
	}
	a, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestNew_LoadsSettingsFromPaths(t *testing.T) {
	t.Setenv(config.EnvRuntime, "")
	t.Setenv(config.EnvNotifyPort, "7777")

	dir := t.TempDir()
	a, err := New(
		WithPaths(config.NewPaths(dir, dir)),
		WithRuntime(runtime.NewMockRuntime()),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if a.Settings.NotifyPort != 7777 {
		t.Errorf("NotifyPort = %d, want 7777", a.Settings.NotifyPort)
	}
	if a.FS == nil || a.Executor == nil {
		t.Error("FS and Executor should default")
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	t.Setenv(config.EnvRuntime, "lxc")

	dir := t.TempDir()
	_, err := New(WithPaths(config.NewPaths(dir, dir)))
	if poderrors.GetExitCode(err) != poderrors.ExitConfigError {
		t.Errorf("New() error = %v, want config error", err)
	}
}

func TestNew_WithRuntime(t *testing.T) {
	mockRuntime := runtime.NewMockRuntime()
	a := testApp(t, WithRuntime(mockRuntime))

	rt, err := a.RequireRuntime()
	if err != nil {
		t.Fatalf("RequireRuntime() error: %v", err)
	}
	if rt != mockRuntime {
		t.Error("WithRuntime did not set runtime")
	}
}

func TestRequireRuntime_DetectionFailure(t *testing.T) {
	a := &App{runtimeErr: errors.New("no supported container runtime found")}

	_, err := a.RequireRuntime()
	if poderrors.GetExitCode(err) != poderrors.ExitRuntimeError {
		t.Errorf("RequireRuntime() error = %v, want runtime error", err)
	}

	if _, err := a.ImageGate(); err == nil {
		t.Error("ImageGate() should fail without a runtime")
	}
	if _, err := a.Controller(); err == nil {
		t.Error("Controller() should fail without a runtime")
	}
}

func TestImageGate(t *testing.T) {
	a := testApp(t)

	gate, err := a.ImageGate()
	if err != nil {
		t.Fatalf("ImageGate() error: %v", err)
	}
	if gate.Tag != config.DefaultImage {
		t.Errorf("Tag = %q", gate.Tag)
	}
	if gate.Recipe != filepath.Join(a.Paths.ConfigDir, "Dockerfile") {
		t.Errorf("Recipe = %q", gate.Recipe)
	}
	if gate.ContextDir != a.Paths.ConfigDir || gate.RecordPath != a.Paths.ImageRecord {
		t.Errorf("gate = %+v", gate)
	}
}

func TestController(t *testing.T) {
	a := testApp(t)

	c, err := a.Controller()
	if err != nil {
		t.Fatalf("Controller() error: %v", err)
	}
	if c.Image != config.DefaultImage || c.HostGateway != config.DefaultHostGateway {
		t.Errorf("controller = %+v", c)
	}
	if c.Locks == nil || c.Audit == nil {
		t.Error("controller should lock and audit")
	}
}

func TestSupervisor(t *testing.T) {
	fs := system.NewMockFS()
	exec := system.NewMockExecutor()
	a := testApp(t, WithFileSystem(fs), WithExecutor(exec))

	s := a.Supervisor(9999)
	if s.Port != 9999 {
		t.Errorf("Port = %d", s.Port)
	}
	if s.PIDFile != a.Paths.PIDFile || s.LogFile != a.Paths.LogFile || s.LockFile != a.Paths.DaemonLock {
		t.Errorf("supervisor paths = %+v", s)
	}
	if s.FS != fs || s.Spawner != exec {
		t.Error("supervisor should use the app's FS and executor")
	}
}

func TestNotifyPort(t *testing.T) {
	a := testApp(t)

	tests := []struct {
		override int
		want     int
		wantErr  bool
	}{
		{0, config.DefaultNotifyPort, false},
		{8080, 8080, false},
		{70000, 0, true},
		{-1, 0, true},
	}

	for _, tt := range tests {
		got, err := a.NotifyPort(tt.override)
		if (err != nil) != tt.wantErr {
			t.Errorf("NotifyPort(%d) error = %v, wantErr %v", tt.override, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("NotifyPort(%d) = %d, want %d", tt.override, got, tt.want)
		}
	}
}
