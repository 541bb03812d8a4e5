// Package testutil provides test utilities for integration tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/firefly-engineering/ai-pod/internal/app"
	"github.com/firefly-engineering/ai-pod/internal/config"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// FakeProcessChecker treats the PIDs in Alive as running processes.
type FakeProcessChecker struct {
	mu         sync.Mutex
	alive      map[int]bool
	Terminated []int
}

// NewFakeProcessChecker returns a checker with no live processes.
func NewFakeProcessChecker() *FakeProcessChecker {
	return &FakeProcessChecker{alive: map[int]bool{}}
}

func (f *FakeProcessChecker) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *FakeProcessChecker) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Terminated = append(f.Terminated, pid)
	delete(f.alive, pid)
	return nil
}

// SetAlive marks pid as running or not.
func (f *FakeProcessChecker) SetAlive(pid int, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = alive
}

// FakeProber answers every probe with Err.
type FakeProber struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (f *FakeProber) Probe(ctx context.Context, port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	return f.Err
}

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Paths    *config.Paths
	Settings *config.Settings
	Runtime  *runtime.MockRuntime
	Executor *system.MockExecutor
	Checker  *FakeProcessChecker
	Prober   *FakeProber
	App      *app.App
}

// NewTestEnv creates a test environment with a mock runtime, a mock
// executor for spawning and fake daemon probes. State files live on the
// real filesystem under a temporary directory.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	paths := config.NewPaths(filepath.Join(tmpDir, "ai-pod"), filepath.Join(tmpDir, "home"))

	for _, dir := range []string{paths.ConfigDir, filepath.Dir(paths.UserSettings)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	settings := config.DefaultSettings()
	mockRuntime := runtime.NewMockRuntime()
	executor := system.NewMockExecutor()
	checker := NewFakeProcessChecker()
	prober := &FakeProber{}

	// Spawned servers count as alive so a second Ensure sees them healthy.
	checker.SetAlive(executor.StartPID, true)

	testApp, err := app.New(
		app.WithPaths(paths),
		app.WithSettings(settings),
		app.WithRuntime(mockRuntime),
		app.WithFileSystem(system.DefaultFS()),
		app.WithExecutor(executor),
		app.WithDaemonProbes(checker, prober),
		app.WithExecutable(func() (string, error) { return "/usr/local/bin/ai-pod", nil }),
		app.WithSleep(func(time.Duration) {}),
	)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	return &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		Paths:    paths,
		Settings: settings,
		Runtime:  mockRuntime,
		Executor: executor,
		Checker:  checker,
		Prober:   prober,
		App:      testApp,
	}
}

// CreateWorkspace creates a workspace directory and returns its
// canonical path.
func (e *TestEnv) CreateWorkspace(name string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, "workspaces", name)
	if err := os.MkdirAll(path, 0755); err != nil {
		e.T.Fatalf("Failed to create workspace: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		e.T.Fatalf("Failed to resolve workspace: %v", err)
	}
	return resolved
}

// WriteFile writes content to path relative to the temp dir, creating
// parent directories.
func (e *TestEnv) WriteFile(rel, content string) string {
	e.T.Helper()

	path := filepath.Join(e.TmpDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.T.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// WriteRecipe overwrites the image recipe.
func (e *TestEnv) WriteRecipe(content string) {
	e.T.Helper()

	recipe, err := e.Settings.RecipePath(e.Paths.ConfigDir)
	if err != nil {
		e.T.Fatalf("Failed to resolve recipe: %v", err)
	}
	if err := os.WriteFile(recipe, []byte(content), 0644); err != nil {
		e.T.Fatalf("Failed to write recipe: %v", err)
	}
}

// WriteUserSettings writes the user's own settings.json.
func (e *TestEnv) WriteUserSettings(content []byte) {
	e.T.Helper()

	if err := os.WriteFile(e.Paths.UserSettings, content, 0644); err != nil {
		e.T.Fatalf("Failed to write user settings: %v", err)
	}
}

// Methods returns the runtime calls made so far and clears the log.
func (e *TestEnv) Methods() []string {
	methods := e.Runtime.Methods()
	e.Runtime.CallLog = nil
	return methods
}
