package system

import (
	"context"
	"errors"
	"io/fs"
	"testing"
)

func TestMockFS_ReadWriteFile(t *testing.T) {
	mockFS := NewMockFS()

	content := []byte("hello world")
	if err := mockFS.WriteFile("/test/file.txt", content, 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	data, err := mockFS.ReadFile("/test/file.txt")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	if string(data) != "hello world" {
		t.Errorf("ReadFile = %q, want %q", string(data), "hello world")
	}
}

func TestMockFS_ReadFile_NotExists(t *testing.T) {
	mockFS := NewMockFS()

	_, err := mockFS.ReadFile("/nonexistent")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_Exists(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/dir/file.txt", []byte("x"), 0644)

	if !mockFS.Exists("/dir/file.txt") {
		t.Error("File should exist")
	}
	if !mockFS.Exists("/dir") {
		t.Error("Parent dir should exist")
	}
	if mockFS.Exists("/nonexistent") {
		t.Error("Nonexistent should not exist")
	}
}

func TestMockFS_Remove(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/file.txt", []byte("x"), 0644)

	if err := mockFS.Remove("/file.txt"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if mockFS.Exists("/file.txt") {
		t.Error("File should be removed")
	}
	if err := mockFS.Remove("/file.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_MkdirAll(t *testing.T) {
	mockFS := NewMockFS()

	if err := mockFS.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mockFS.Exists(p) {
			t.Errorf("%s should exist", p)
		}
	}
}

func TestMockFS_ErrorInjection(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.ReadFileErr = fs.ErrPermission

	_, err := mockFS.ReadFile("/anything")
	if err != fs.ErrPermission {
		t.Errorf("ReadFile error = %v, want ErrPermission", err)
	}
}

func TestMockExecutor_Output(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("echo", []byte("hello\n"), nil)

	output, err := exec.Output(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	if string(output) != "hello\n" {
		t.Errorf("Output = %q, want %q", string(output), "hello\n")
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("No command recorded")
	}
	if cmd.Name != "echo" {
		t.Errorf("Command name = %q, want %q", cmd.Name, "echo")
	}
}

func TestMockExecutor_MostSpecificResponseWins(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("podman", []byte("generic"), nil)
	exec.AddResponse("podman image", []byte("image"), nil)
	exec.AddResponse("podman image inspect", []byte("inspect"), nil)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"image", "inspect", "x"}, "inspect"},
		{[]string{"image", "ls"}, "image"},
		{[]string{"ps"}, "generic"},
	}

	for _, tt := range tests {
		out, _ := exec.Output(context.Background(), "podman", tt.args...)
		if string(out) != tt.want {
			t.Errorf("Output(%v) = %q, want %q", tt.args, out, tt.want)
		}
	}
}

func TestMockExecutor_DefaultResponse(t *testing.T) {
	exec := NewMockExecutor()
	exec.DefaultResponse = MockResponse{Output: []byte("default"), Err: nil}

	output, err := exec.Output(context.Background(), "unknown", "command")
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	if string(output) != "default" {
		t.Errorf("Output = %q, want %q", string(output), "default")
	}
}

func TestMockExecutor_Start(t *testing.T) {
	exec := NewMockExecutor()
	exec.StartPID = 99

	pid, err := exec.Start("/bin/ai-pod", []string{"serve-notifications"}, StartOptions{LogPath: "/tmp/log", NewSession: true})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if pid != 99 {
		t.Errorf("pid = %d, want 99", pid)
	}
	if len(exec.Started) != 1 || exec.Started[0].LogPath != "/tmp/log" {
		t.Errorf("Started = %+v", exec.Started)
	}

	exec.StartErr = errors.New("fork failed")
	if _, err := exec.Start("x", nil, StartOptions{}); err == nil {
		t.Error("expected injected Start error")
	}
}

func TestMockExecutor_Reset(t *testing.T) {
	exec := NewMockExecutor()
	exec.Output(context.Background(), "cmd1")
	exec.ExecuteInteractive(context.Background(), "cmd2")

	if len(exec.Commands) != 2 {
		t.Errorf("Commands length = %d, want 2", len(exec.Commands))
	}
	if !exec.Commands[1].Interactive {
		t.Error("ExecuteInteractive should be recorded as interactive")
	}

	exec.Reset()

	if len(exec.Commands) != 0 {
		t.Errorf("Commands length after reset = %d, want 0", len(exec.Commands))
	}
}
