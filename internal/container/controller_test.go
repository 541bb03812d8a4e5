package container

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/firefly-engineering/ai-pod/internal/audit"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/identity"
	"github.com/firefly-engineering/ai-pod/internal/lock"
	"github.com/firefly-engineering/ai-pod/internal/runtime"
	"github.com/firefly-engineering/ai-pod/internal/settings"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

type stubMaterializer struct {
	err   error
	calls int
	port  int
}

func (s *stubMaterializer) Materialize(port int) (settings.Files, error) {
	s.calls++
	s.port = port
	if s.err != nil {
		return settings.Files{}, s.err
	}
	return settings.Files{
		ClaudeMD:     "/cfg/runtime-CLAUDE.md",
		Settings:     "/cfg/runtime-settings.json",
		ClaudeMDDest: settings.ContainerDir + "/CLAUDE.md",
		SettingsDest: settings.ContainerDir + "/settings.json",
	}, nil
}

type memRecorder struct {
	mu     sync.Mutex
	events []audit.EventType
}

func (r *memRecorder) Record(eventType audit.EventType, subject, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func newController(rt runtime.Runtime) (*Controller, *stubMaterializer) {
	m := &stubMaterializer{}
	return &Controller{
		Runtime:      rt,
		Materializer: m,
		Image:        "ai-pod:latest",
		HostGateway:  "host.containers.internal",
	}, m
}

var testID = identity.Derive("/work/project")

func TestProbe(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*runtime.MockRuntime)
		want  State
	}{
		{"absent", func(*runtime.MockRuntime) {}, Absent},
		{"stopped", func(rt *runtime.MockRuntime) { rt.AddContainer(testID.Name, runtime.StatusStopped) }, Stopped},
		{"running", func(rt *runtime.MockRuntime) { rt.AddContainer(testID.Name, runtime.StatusRunning) }, Running},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			tt.setup(rt)
			got, err := Probe(context.Background(), rt, testID.Name)
			if err != nil {
				t.Fatalf("Probe() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbe_RuntimeError(t *testing.T) {
	for _, method := range []string{"Exists", "IsRunning"} {
		t.Run(method, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			rt.AddContainer(testID.Name, runtime.StatusRunning)
			rt.SetError(method, errors.New("cannot connect to podman"))

			_, err := Probe(context.Background(), rt, testID.Name)
			if err == nil {
				t.Fatal("Probe() should fail")
			}
			if code := poderrors.GetExitCode(err); code != poderrors.ExitRuntimeError {
				t.Errorf("exit code = %d, want %d", code, poderrors.ExitRuntimeError)
			}
		})
	}
}

func TestLaunch_Absent(t *testing.T) {
	rt := runtime.NewMockRuntime()
	c, m := newController(rt)
	rec := &memRecorder{}
	c.Audit = rec

	if err := c.Launch(context.Background(), testID, 9876); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	want := []string{"Exists", "Create", "CopyTo", "CopyTo", "Attach"}
	if got := rt.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if m.calls != 1 || m.port != 9876 {
		t.Errorf("Materialize calls = %d (port %d), want 1 (port 9876)", m.calls, m.port)
	}

	opts := rt.GetCallsFor("Create")[0].Args[0].(runtime.CreateOptions)
	if opts.Name != testID.Name || opts.Image != "ai-pod:latest" || !opts.Init {
		t.Errorf("CreateOptions = %+v", opts)
	}

	mounts := make([]string, len(opts.Mounts))
	for i, mnt := range opts.Mounts {
		mounts[i] = mnt.String()
	}
	wantMounts := []string{
		"/work/project:/app:Z",
		testID.Name + "-data:/home/claude/.claude",
	}
	if !reflect.DeepEqual(mounts, wantMounts) {
		t.Errorf("mounts = %v, want %v", mounts, wantMounts)
	}

	if !reflect.DeepEqual(opts.ExtraHosts, []string{"host.containers.internal:host-gateway"}) {
		t.Errorf("ExtraHosts = %v", opts.ExtraHosts)
	}

	wantEnv := []string{
		"HOST_GATEWAY=host.containers.internal",
		"NOTIFY_URL=http://host.containers.internal:9876/notify",
		"NOTIFY_PORT=9876",
	}
	if !reflect.DeepEqual(opts.Env, wantEnv) {
		t.Errorf("Env = %v, want %v", opts.Env, wantEnv)
	}

	if rt.Copied[testID.Name+":/home/claude/.claude/CLAUDE.md"] != "/cfg/runtime-CLAUDE.md" {
		t.Errorf("CLAUDE.md not copied: %v", rt.Copied)
	}
	if rt.Copied[testID.Name+":/home/claude/.claude/settings.json"] != "/cfg/runtime-settings.json" {
		t.Errorf("settings.json not copied: %v", rt.Copied)
	}
	if !rt.Volumes[testID.Volume()] {
		t.Error("data volume should exist after create")
	}

	wantEvents := []audit.EventType{audit.EventCreate, audit.EventAttach}
	if !reflect.DeepEqual(rec.events, wantEvents) {
		t.Errorf("audit events = %v, want %v", rec.events, wantEvents)
	}
}

func TestLaunch_Stopped(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer(testID.Name, runtime.StatusStopped)
	c, m := newController(rt)

	if err := c.Launch(context.Background(), testID, 9876); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	want := []string{"Exists", "IsRunning", "Start", "Attach"}
	if got := rt.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if m.calls != 0 {
		t.Error("existing containers should not be re-materialized")
	}
}

func TestLaunch_Running(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer(testID.Name, runtime.StatusRunning)
	c, _ := newController(rt)

	if err := c.Launch(context.Background(), testID, 9876); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	want := []string{"Exists", "IsRunning", "Attach"}
	if got := rt.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestLaunch_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*runtime.MockRuntime, *stubMaterializer)
		wantCode  int
		wantCalls []string
	}{
		{
			name:      "materialize",
			setup:     func(_ *runtime.MockRuntime, m *stubMaterializer) { m.err = errors.New("hooks is not an object") },
			wantCode:  poderrors.ExitContainerFailed,
			wantCalls: []string{"Exists"},
		},
		{
			name:      "create",
			setup:     func(rt *runtime.MockRuntime, _ *stubMaterializer) { rt.SetError("Create", errors.New("no such image")) },
			wantCode:  poderrors.ExitContainerFailed,
			wantCalls: []string{"Exists", "Create"},
		},
		{
			name:      "copy",
			setup:     func(rt *runtime.MockRuntime, _ *stubMaterializer) { rt.SetError("CopyTo", errors.New("copy failed")) },
			wantCode:  poderrors.ExitContainerFailed,
			wantCalls: []string{"Exists", "Create", "CopyTo"},
		},
		{
			name: "attach",
			setup: func(rt *runtime.MockRuntime, _ *stubMaterializer) {
				rt.SetError("Attach", errors.New("exit status 125"))
			},
			wantCode:  poderrors.ExitContainerFailed,
			wantCalls: []string{"Exists", "Create", "CopyTo", "CopyTo", "Attach"},
		},
		{
			name: "probe",
			setup: func(rt *runtime.MockRuntime, _ *stubMaterializer) {
				rt.SetError("Exists", errors.New("socket refused"))
			},
			wantCode:  poderrors.ExitRuntimeError,
			wantCalls: []string{"Exists"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			c, m := newController(rt)
			tt.setup(rt, m)

			err := c.Launch(context.Background(), testID, 9876)
			if err == nil {
				t.Fatal("Launch() should fail")
			}
			if code := poderrors.GetExitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err %v)", code, tt.wantCode, err)
			}
			if got := rt.Methods(); !reflect.DeepEqual(got, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
		})
	}
}

func TestLaunch_StartFailure(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer(testID.Name, runtime.StatusStopped)
	rt.SetError("Start", errors.New("exit status 125"))
	c, _ := newController(rt)

	err := c.Launch(context.Background(), testID, 9876)
	if code := poderrors.GetExitCode(err); code != poderrors.ExitContainerFailed {
		t.Errorf("exit code = %d, want %d", code, poderrors.ExitContainerFailed)
	}
	if len(rt.GetCallsFor("Attach")) != 0 {
		t.Error("should not attach after a failed start")
	}
}

func TestLaunch_ConcurrentCreatesOnce(t *testing.T) {
	rt := runtime.NewMockRuntime()
	c, _ := newController(rt)
	c.Locks = lock.Dir(t.TempDir())

	const launches = 4
	var wg sync.WaitGroup
	errs := make(chan error, launches)
	for i := 0; i < launches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Launch(context.Background(), testID, 9876)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Launch() error: %v", err)
		}
	}
	if n := len(rt.GetCallsFor("Create")); n != 1 {
		t.Errorf("Create called %d times, want 1", n)
	}
	if n := len(rt.GetCallsFor("Attach")); n != launches {
		t.Errorf("Attach called %d times, want %d", n, launches)
	}
}

func TestLaunch_WithRealMaterializer(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile("/home/u/.claude/settings.json", []byte(`{"model": "opus"}`), 0644)

	rt := runtime.NewMockRuntime()
	c := &Controller{
		Runtime: rt,
		Materializer: &settings.Materializer{
			HostGateway:  "host.containers.internal",
			UserClaudeMD: "/home/u/.claude/CLAUDE.md",
			UserSettings: "/home/u/.claude/settings.json",
			OutClaudeMD:  "/cfg/runtime-CLAUDE.md",
			OutSettings:  "/cfg/runtime-settings.json",
			FS:           fs,
		},
		Image:       "ai-pod:latest",
		HostGateway: "host.containers.internal",
	}

	if err := c.Launch(context.Background(), testID, 7000); err != nil {
		t.Fatalf("Launch() error: %v", err)
	}

	data, ok := fs.GetFile("/cfg/runtime-settings.json")
	if !ok {
		t.Fatal("runtime settings not written")
	}
	if !strings.Contains(string(data), "host.containers.internal:7000/notify") {
		t.Errorf("runtime settings missing hook: %s", data)
	}
}

func TestList(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer("claude-aaaaaaaaaaaa", runtime.StatusRunning)
	rt.AddContainer("claude-bbbbbbbbbbbb", runtime.StatusStopped)
	rt.AddContainer("postgres", runtime.StatusRunning)
	c, _ := newController(rt)

	infos, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d containers, want 2", len(infos))
	}
	if infos[0].Name != "claude-aaaaaaaaaaaa" || infos[1].Status != runtime.StatusStopped {
		t.Errorf("List() = %+v, %+v", infos[0], infos[1])
	}

	rt.SetError("List", errors.New("boom"))
	if _, err := c.List(context.Background()); poderrors.GetExitCode(err) != poderrors.ExitRuntimeError {
		t.Errorf("List() error = %v, want runtime error", err)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*runtime.MockRuntime)
		want      CleanResult
		wantCalls []string
	}{
		{
			name:      "absent",
			setup:     func(*runtime.MockRuntime) {},
			want:      CleanResult{},
			wantCalls: []string{"Exists"},
		},
		{
			name: "running with volume",
			setup: func(rt *runtime.MockRuntime) {
				rt.AddContainer(testID.Name, runtime.StatusRunning)
				rt.AddVolume(testID.Volume())
			},
			want:      CleanResult{Existed: true, WasRunning: true, VolumeRemoved: true},
			wantCalls: []string{"Exists", "IsRunning", "Stop", "Remove", "RemoveVolume"},
		},
		{
			name: "stopped without volume",
			setup: func(rt *runtime.MockRuntime) {
				rt.AddContainer(testID.Name, runtime.StatusStopped)
			},
			want:      CleanResult{Existed: true},
			wantCalls: []string{"Exists", "IsRunning", "Remove", "RemoveVolume"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := runtime.NewMockRuntime()
			tt.setup(rt)
			c, _ := newController(rt)

			got, err := c.Clean(context.Background(), testID)
			if err != nil {
				t.Fatalf("Clean() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Clean() = %+v, want %+v", got, tt.want)
			}
			if calls := rt.Methods(); !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if _, ok := rt.Containers[testID.Name]; ok {
				t.Error("container should be gone")
			}
		})
	}
}

func TestClean_RemoveFailure(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer(testID.Name, runtime.StatusStopped)
	rt.SetError("Remove", errors.New("container is busy"))
	c, _ := newController(rt)

	result, err := c.Clean(context.Background(), testID)
	if poderrors.GetExitCode(err) != poderrors.ExitContainerFailed {
		t.Errorf("Clean() error = %v, want container failure", err)
	}
	if !result.Existed {
		t.Error("result should report the container existed")
	}
	if len(rt.GetCallsFor("RemoveVolume")) != 0 {
		t.Error("volume should not be touched after a failed remove")
	}
}

func TestClean_VolumeFailure(t *testing.T) {
	rt := runtime.NewMockRuntime()
	rt.AddContainer(testID.Name, runtime.StatusStopped)
	rt.SetError("RemoveVolume", errors.New("volume is in use"))
	c, _ := newController(rt)

	if _, err := c.Clean(context.Background(), testID); poderrors.GetExitCode(err) != poderrors.ExitContainerFailed {
		t.Errorf("Clean() error = %v, want container failure", err)
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{Absent: "absent", Stopped: "stopped", Running: "running", State(9): "unknown"} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
