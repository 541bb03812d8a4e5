package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// Containers tracks the state of mock containers
	Containers map[string]*ContainerInfo

	// Images holds the tags of images that exist
	Images map[string]bool

	// Volumes holds the names of volumes that exist
	Volumes map[string]bool

	// Copied records CopyTo calls as "name:containerPath" -> host path
	Copied map[string]string

	// VersionString is returned by Version
	VersionString string

	// NameValue is returned by Name; defaults to "mock"
	NameValue string

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		Containers:    make(map[string]*ContainerInfo),
		Images:        make(map[string]bool),
		Volumes:       make(map[string]bool),
		Copied:        make(map[string]string),
		Errors:        make(map[string]error),
		CallLog:       make([]MockCall, 0),
		VersionString: "5.4.0",
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddContainer adds a container to the mock
func (m *MockRuntime) AddContainer(name string, status ContainerStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers[name] = &ContainerInfo{
		Name:   name,
		Status: status,
	}
}

// AddImage marks an image tag as present
func (m *MockRuntime) AddImage(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Images[tag] = true
}

// AddVolume marks a volume as present
func (m *MockRuntime) AddVolume(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Volumes[name] = true
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]MockCall, len(m.CallLog))
	copy(calls, m.CallLog)
	return calls
}

// GetCallsFor returns all calls for a specific method
func (m *MockRuntime) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Methods returns the names of all recorded calls in order
func (m *MockRuntime) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	methods := make([]string, len(m.CallLog))
	for i, call := range m.CallLog {
		methods[i] = call.Method
	}
	return methods
}

// Reset clears all state
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = make(map[string]*ContainerInfo)
	m.Images = make(map[string]bool)
	m.Volumes = make(map[string]bool)
	m.Copied = make(map[string]string)
	m.Errors = make(map[string]error)
	m.CallLog = make([]MockCall, 0)
}

// Name returns the runtime identifier
func (m *MockRuntime) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Version returns VersionString
func (m *MockRuntime) Version(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Version")

	if err, ok := m.Errors["Version"]; ok {
		return "", err
	}
	return m.VersionString, nil
}

// ImageExists reports whether the tag was added or built
func (m *MockRuntime) ImageExists(ctx context.Context, tag string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ImageExists", tag)

	if err, ok := m.Errors["ImageExists"]; ok {
		return false, err
	}
	return m.Images[tag], nil
}

// BuildImage marks the tag as present
func (m *MockRuntime) BuildImage(ctx context.Context, opts BuildOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("BuildImage", opts)

	if err, ok := m.Errors["BuildImage"]; ok {
		return err
	}
	m.Images[opts.Tag] = true
	return nil
}

// Exists reports whether a container exists
func (m *MockRuntime) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Exists", name)

	if err, ok := m.Errors["Exists"]; ok {
		return false, err
	}
	_, ok := m.Containers[name]
	return ok, nil
}

// IsRunning checks if a container is currently running
func (m *MockRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IsRunning", name)

	if err, ok := m.Errors["IsRunning"]; ok {
		return false, err
	}

	if container, ok := m.Containers[name]; ok {
		return container.Status == StatusRunning, nil
	}

	return false, nil
}

// Create creates a running container and any named volumes it mounts
func (m *MockRuntime) Create(ctx context.Context, opts CreateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Create", opts)

	if err, ok := m.Errors["Create"]; ok {
		return err
	}
	if _, ok := m.Containers[opts.Name]; ok {
		return fmt.Errorf("container name %q is already in use", opts.Name)
	}

	for _, mount := range opts.Mounts {
		if !filepath.IsAbs(mount.Source) {
			m.Volumes[mount.Source] = true
		}
	}

	m.Containers[opts.Name] = &ContainerInfo{
		Name:   opts.Name,
		Status: StatusRunning,
	}

	return nil
}

// Start starts an existing container
func (m *MockRuntime) Start(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Start", name)

	if err, ok := m.Errors["Start"]; ok {
		return err
	}

	if container, ok := m.Containers[name]; ok {
		container.Status = StatusRunning
		return nil
	}

	return fmt.Errorf("container not found: %s", name)
}

// Attach records the attach and returns immediately
func (m *MockRuntime) Attach(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Attach", name)

	if err, ok := m.Errors["Attach"]; ok {
		return err
	}
	if _, ok := m.Containers[name]; !ok {
		return fmt.Errorf("container not found: %s", name)
	}
	return nil
}

// Stop stops a running container
func (m *MockRuntime) Stop(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Stop", name)

	if err, ok := m.Errors["Stop"]; ok {
		return err
	}

	if container, ok := m.Containers[name]; ok {
		container.Status = StatusStopped
		return nil
	}

	return fmt.Errorf("container not found: %s", name)
}

// Remove removes a container
func (m *MockRuntime) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Remove", name)

	if err, ok := m.Errors["Remove"]; ok {
		return err
	}
	if _, ok := m.Containers[name]; !ok {
		return fmt.Errorf("container not found: %s", name)
	}

	delete(m.Containers, name)
	return nil
}

// RemoveVolume removes a volume, returning ErrNotFound when absent
func (m *MockRuntime) RemoveVolume(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemoveVolume", name)

	if err, ok := m.Errors["RemoveVolume"]; ok {
		return err
	}
	if !m.Volumes[name] {
		return fmt.Errorf("volume %s: %w", name, ErrNotFound)
	}

	delete(m.Volumes, name)
	return nil
}

// CopyTo records the copy
func (m *MockRuntime) CopyTo(ctx context.Context, name, hostPath, containerPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CopyTo", name, hostPath, containerPath)

	if err, ok := m.Errors["CopyTo"]; ok {
		return err
	}
	if _, ok := m.Containers[name]; !ok {
		return fmt.Errorf("container not found: %s", name)
	}

	m.Copied[name+":"+containerPath] = hostPath
	return nil
}

// List returns containers whose name starts with prefix, sorted by name
func (m *MockRuntime) List(ctx context.Context, prefix string) ([]*ContainerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("List", prefix)

	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}

	var containers []*ContainerInfo
	for name, container := range m.Containers {
		if strings.HasPrefix(name, prefix) {
			containers = append(containers, container)
		}
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })

	return containers, nil
}

// Ensure MockRuntime implements Runtime
var _ Runtime = (*MockRuntime)(nil)
