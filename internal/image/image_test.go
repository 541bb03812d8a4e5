package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

const (
	recipePath = "/cfg/Dockerfile"
	recordPath = "/cfg/image.sha256"
	tag        = "ai-pod:latest"
)

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newGate(rt *runtime.MockRuntime, fs *system.MockFS) *Gate {
	return &Gate{
		Runtime:    rt,
		Tag:        tag,
		Recipe:     recipePath,
		ContextDir: "/cfg",
		RecordPath: recordPath,
		FS:         fs,
	}
}

func TestDigest(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile(recipePath, []byte("FROM alpine\n"), 0644)

	got, err := Digest(fs, recipePath)
	if err != nil {
		t.Fatalf("Digest() error: %v", err)
	}
	if got != sha("FROM alpine\n") {
		t.Errorf("Digest() = %q, want %q", got, sha("FROM alpine\n"))
	}
}

func TestReadRecord_Trims(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile(recordPath, []byte("  abc123\n"), 0644)

	got, ok := ReadRecord(fs, recordPath)
	if !ok || got != "abc123" {
		t.Errorf("ReadRecord() = %q, %v", got, ok)
	}

	if _, ok := ReadRecord(fs, "/missing"); ok {
		t.Error("ReadRecord() of a missing file should report !ok")
	}
}

func TestGate_NeedsBuild(t *testing.T) {
	const recipe = "FROM alpine\n"

	tests := []struct {
		name        string
		force       bool
		imageExists bool
		record      *string
		want        bool
	}{
		{"force", true, true, ptr(sha(recipe)), true},
		{"image absent", false, false, ptr(sha(recipe)), true},
		{"record missing", false, true, nil, true},
		{"record mismatch", false, true, ptr(sha("FROM debian\n")), true},
		{"record match", false, true, ptr(sha(recipe)), false},
		{"record match with newline", false, true, ptr(sha(recipe) + "\n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			if tt.imageExists {
				rt.AddImage(tag)
			}
			fs := system.NewMockFS()
			fs.AddFile(recipePath, []byte(recipe), 0644)
			if tt.record != nil {
				fs.AddFile(recordPath, []byte(*tt.record), 0644)
			}

			got, err := newGate(rt, fs).NeedsBuild(context.Background(), tt.force)
			if err != nil {
				t.Fatalf("NeedsBuild() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NeedsBuild() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_NeedsBuild_RuntimeFailure(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.SetError("ImageExists", errors.New("cannot connect"))
	fs := system.NewMockFS()
	fs.AddFile(recipePath, []byte("FROM alpine\n"), 0644)

	_, err := newGate(rt, fs).NeedsBuild(context.Background(), false)
	if poderrors.GetExitCode(err) != poderrors.ExitRuntimeError {
		t.Errorf("exit code = %d, want %d (err %v)", poderrors.GetExitCode(err), poderrors.ExitRuntimeError, err)
	}
}

func TestGate_Build_WritesRecord(t *testing.T) {
	rt := runtime.NewMockRuntime()
	fs := system.NewMockFS()
	fs.AddFile(recipePath, []byte("FROM alpine\n"), 0644)

	if err := newGate(rt, fs).Build(context.Background()); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	data, ok := fs.GetFile(recordPath)
	if !ok || string(data) != sha("FROM alpine\n") {
		t.Errorf("record = %q, want digest of the recipe", data)
	}

	calls := rt.GetCallsFor("BuildImage")
	if len(calls) != 1 {
		t.Fatalf("BuildImage calls = %d, want 1", len(calls))
	}
	opts := calls[0].Args[0].(runtime.BuildOptions)
	if opts.Tag != tag || opts.Recipe != recipePath || opts.ContextDir != "/cfg" {
		t.Errorf("BuildOptions = %+v", opts)
	}
}

func TestGate_Build_FailureLeavesRecord(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.SetError("BuildImage", errors.New("exit status 1"))
	fs := system.NewMockFS()
	fs.AddFile(recipePath, []byte("FROM alpine:edge\n"), 0644)
	fs.AddFile(recordPath, []byte("previous"), 0644)

	err := newGate(rt, fs).Build(context.Background())
	if poderrors.GetExitCode(err) != poderrors.ExitBuildFailed {
		t.Errorf("exit code = %d, want %d", poderrors.GetExitCode(err), poderrors.ExitBuildFailed)
	}

	data, _ := fs.GetFile(recordPath)
	if string(data) != "previous" {
		t.Errorf("record changed to %q after a failed build", data)
	}
}

func TestGate_Ensure(t *testing.T) {
	rt := runtime.NewMockRuntime()
	fs := system.NewMockFS()
	fs.AddFile(recipePath, []byte("FROM alpine\n"), 0644)
	gate := newGate(rt, fs)
	ctx := context.Background()

	built, err := gate.Ensure(ctx, false)
	if err != nil || !built {
		t.Fatalf("first Ensure() = %v, %v; want built", built, err)
	}

	built, err = gate.Ensure(ctx, false)
	if err != nil || built {
		t.Fatalf("second Ensure() = %v, %v; want cache hit", built, err)
	}

	fs.AddFile(recipePath, []byte("FROM alpine:3.20\n"), 0644)
	built, err = gate.Ensure(ctx, false)
	if err != nil || !built {
		t.Fatalf("Ensure() after recipe edit = %v, %v; want rebuild", built, err)
	}

	if n := len(rt.GetCallsFor("BuildImage")); n != 2 {
		t.Errorf("BuildImage calls = %d, want 2", n)
	}
}

func ptr(s string) *string { return &s }
