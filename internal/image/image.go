// Package image decides when the sandbox image must be rebuilt, keyed on
// the digest of its recipe.
package image

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// Gate builds the image only when the recipe changed or the image is gone.
type Gate struct {
	Runtime    runtime.Runtime
	Tag        string
	Recipe     string // Dockerfile path
	ContextDir string
	RecordPath string // holds the hex digest of the last built recipe

	// FS defaults to system.DefaultFS().
	FS system.FileSystem
}

func (g *Gate) fs() system.FileSystem {
	if g.FS != nil {
		return g.FS
	}
	return system.DefaultFS()
}

// Digest returns the hex sha256 of the recipe file.
func Digest(fs system.FileSystem, recipe string) (string, error) {
	data, err := fs.ReadFile(recipe)
	if err != nil {
		return "", fmt.Errorf("failed to read recipe %s: %w", recipe, err)
	}
	return digest.SHA256.FromBytes(data).Encoded(), nil
}

// ReadRecord returns the recorded digest, trimmed. ok is false when the
// record is missing or unreadable.
func ReadRecord(fs system.FileSystem, path string) (string, bool) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// WriteRecord overwrites the record with hex.
func WriteRecord(fs system.FileSystem, path, hex string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return fs.WriteFile(path, []byte(hex), 0644)
}

// NeedsBuild reports whether the image must be (re)built.
func (g *Gate) NeedsBuild(ctx context.Context, force bool) (bool, error) {
	if force {
		logging.Debug("image rebuild forced", "tag", g.Tag)
		return true, nil
	}

	exists, err := g.Runtime.ImageExists(ctx, g.Tag)
	if err != nil {
		return false, poderrors.RuntimeFailed("image inspect", err)
	}
	if !exists {
		logging.Debug("image missing", "tag", g.Tag)
		return true, nil
	}

	current, err := Digest(g.fs(), g.Recipe)
	if err != nil {
		return false, poderrors.ConfigError("cannot hash image recipe", err)
	}

	recorded, ok := ReadRecord(g.fs(), g.RecordPath)
	if !ok || recorded != current {
		logging.Debug("image recipe changed", "recorded", recorded, "current", current)
		return true, nil
	}
	return false, nil
}

// Build runs the runtime build and, on success only, records the recipe
// digest. The digest is taken before the build starts so that a recipe
// edited mid-build triggers another build next time.
func (g *Gate) Build(ctx context.Context) error {
	current, err := Digest(g.fs(), g.Recipe)
	if err != nil {
		return poderrors.ConfigError("cannot hash image recipe", err)
	}

	logging.UserInfo("Building container image %s...", g.Tag)
	err = g.Runtime.BuildImage(ctx, runtime.BuildOptions{
		Tag:        g.Tag,
		Recipe:     g.Recipe,
		ContextDir: g.ContextDir,
	})
	if err != nil {
		return poderrors.BuildFailed(err)
	}

	if err := WriteRecord(g.fs(), g.RecordPath, current); err != nil {
		return poderrors.Wrap(poderrors.ExitGeneralError, "failed to write image record", err)
	}
	logging.UserSuccess("Image built successfully.")
	return nil
}

// Ensure builds the image when NeedsBuild says so. built reports whether a
// build ran.
func (g *Gate) Ensure(ctx context.Context, force bool) (bool, error) {
	needs, err := g.NeedsBuild(ctx, force)
	if err != nil {
		return false, err
	}
	if !needs {
		logging.UserSuccess("Container image is up to date.")
		return false, nil
	}
	if err := g.Build(ctx); err != nil {
		return false, err
	}
	return true, nil
}
