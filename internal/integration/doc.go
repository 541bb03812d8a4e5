// Package integration provides a test harness for integration tests
// that require an actual container runtime.
//
// Integration tests are skipped unless AI_POD_INTEGRATION_TESTS=1. They
// need podman or docker on PATH (or a reachable Docker Engine socket when
// AI_POD_RUNTIME=engine) and network access to pull the base image of
// TestRecipe.
//
// # Test Harness
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if disabled
//
//	    workspace := h.CreateWorkspace("project")
//	    id := h.Track(workspace)
//
//	    // Build, create, and inspect containers...
//
//	    // Containers and volumes are removed via t.Cleanup
//	}
//
// # Running Integration Tests
//
//	AI_POD_INTEGRATION_TESTS=1 go test -v ./internal/integration/...
//	AI_POD_INTEGRATION_TESTS=1 AI_POD_RUNTIME=docker go test -v ./internal/integration/...
package integration
