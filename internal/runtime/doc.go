// Package runtime provides a unified interface for container runtimes.
//
// Supported runtimes:
//   - podman: the podman CLI (preferred)
//   - docker: the docker CLI
//   - engine: the Docker Engine API over DOCKER_HOST or the default socket
//
// With "auto", Detect picks podman when it is on PATH and falls back to
// docker. The engine backend is only used when selected explicitly.
//
// # Runtime Interface
//
// The Runtime interface defines the operations ai-pod needs:
//   - ImageExists, BuildImage: image cache
//   - Exists, IsRunning: read-only state probes; a missing container is not an error
//   - Create, Start, Attach, Stop, Remove: container lifecycle
//   - RemoveVolume, CopyTo: data volume and file injection
//   - List: enumerate containers by name prefix
//
// SupportsHostGateway checks a runtime version against the first release
// that resolves the "host-gateway" extra-hosts target.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create an in-memory implementation
// that records calls and supports error injection per method.
package runtime
