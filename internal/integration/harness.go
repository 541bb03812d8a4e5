package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/ai-pod/internal/app"
	"github.com/firefly-engineering/ai-pod/internal/config"
	"github.com/firefly-engineering/ai-pod/internal/identity"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
)

const (
	// EnvEnable turns integration tests on when set to "1".
	EnvEnable = "AI_POD_INTEGRATION_TESTS"

	// TestImage is the tag built from TestRecipe.
	TestImage = "ai-pod-integration:latest"

	// TestRecipe is a minimal image whose main process stays up.
	TestRecipe = "FROM docker.io/library/busybox:latest\nCMD [\"sleep\", \"infinity\"]\n"
)

// Harness provides utilities for integration testing with real containers.
type Harness struct {
	t          *testing.T
	tempDir    string
	app        *app.App
	identities []identity.Identity
}

// NewHarness creates a harness backed by the detected runtime and an
// isolated config directory. It skips the test when integration tests are
// disabled or no runtime responds.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	if os.Getenv(EnvEnable) != "1" {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvEnable)
	}

	tempDir := t.TempDir()
	paths := config.NewPaths(filepath.Join(tempDir, "ai-pod"), filepath.Join(tempDir, "home"))
	for _, dir := range []string{paths.ConfigDir, filepath.Dir(paths.UserSettings)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	settings := config.DefaultSettings()
	settings.Image = TestImage
	if v := os.Getenv(config.EnvRuntime); v != "" {
		settings.Runtime = v
	}

	a, err := app.New(app.WithPaths(paths), app.WithSettings(settings))
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	rt, err := a.RequireRuntime()
	if err != nil {
		t.Skipf("no container runtime available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := rt.Version(ctx); err != nil {
		t.Skipf("%s not responsive: %v", rt.Name(), err)
	}

	recipe, err := settings.RecipePath(paths.ConfigDir)
	if err != nil {
		t.Fatalf("Failed to resolve recipe: %v", err)
	}
	if err := os.WriteFile(recipe, []byte(TestRecipe), 0644); err != nil {
		t.Fatalf("Failed to write recipe: %v", err)
	}

	h := &Harness{
		t:       t,
		tempDir: tempDir,
		app:     a,
	}
	t.Cleanup(h.Cleanup)

	return h
}

// App returns the application context wired to the real runtime.
func (h *Harness) App() *app.App {
	return h.app
}

// Runtime returns the container runtime.
func (h *Harness) Runtime() runtime.Runtime {
	return h.app.Runtime
}

// CreateWorkspace creates a workspace directory holding a README and
// returns its canonical path.
func (h *Harness) CreateWorkspace(name string) string {
	h.t.Helper()

	path := filepath.Join(h.tempDir, "workspaces", name)
	if err := os.MkdirAll(path, 0755); err != nil {
		h.t.Fatalf("Failed to create workspace: %v", err)
	}

	testFile := filepath.Join(path, "README.md")
	if err := os.WriteFile(testFile, []byte("# Test Workspace\n"), 0644); err != nil {
		h.t.Fatalf("Failed to create test file: %v", err)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		h.t.Fatalf("Failed to resolve workspace: %v", err)
	}
	return resolved
}

// Track derives the identity of workspace and schedules its container
// and volume for removal. Leftovers from an earlier run are removed first.
func (h *Harness) Track(workspace string) identity.Identity {
	id := identity.Derive(workspace)
	h.remove(id)
	h.identities = append(h.identities, id)
	return id
}

// Cleanup removes every tracked container and volume.
func (h *Harness) Cleanup() {
	for _, id := range h.identities {
		h.remove(id)
	}
}

func (h *Harness) remove(id identity.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt := h.Runtime()
	if exists, _ := rt.Exists(ctx, id.Name); exists {
		_ = rt.Stop(ctx, id.Name)
		if err := rt.Remove(ctx, id.Name); err != nil {
			h.t.Logf("Warning: failed to remove container %s: %v", id.Name, err)
		}
	}
	_ = rt.RemoveVolume(ctx, id.Volume())
}

// RequireRunning fails the test if the named container is not running.
func (h *Harness) RequireRunning(name string) {
	h.t.Helper()

	running, err := h.Runtime().IsRunning(context.Background(), name)
	if err != nil {
		h.t.Fatalf("failed to check if %s is running: %v", name, err)
	}
	if !running {
		h.t.Fatalf("container %s is not running", name)
	}
}
