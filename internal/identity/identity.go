// Package identity derives the deterministic container and volume names
// for a workspace.
package identity

import (
	"fmt"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Prefix is carried by every container name ai-pod creates.
const Prefix = "claude-"

// hashLen is the number of hex characters kept from the workspace digest.
const hashLen = 12

// Identity names the container and volume owned by one workspace.
type Identity struct {
	Name      string
	Workspace string
}

// Derive returns the identity of a canonical workspace path. The same path
// always yields the same name, on any machine.
func Derive(workspace string) Identity {
	d := digest.SHA256.FromString(workspace)
	return Identity{
		Name:      Prefix + d.Encoded()[:hashLen],
		Workspace: workspace,
	}
}

// Volume returns the name of the persistent data volume.
func (id Identity) Volume() string {
	return id.Name + "-data"
}

// LockName is the file name used to serialize container creation.
func (id Identity) LockName() string {
	return id.Name + ".lock"
}

func (id Identity) String() string {
	return id.Name
}

// Canonicalize returns the absolute, symlink-resolved form of path.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return resolved, nil
}
