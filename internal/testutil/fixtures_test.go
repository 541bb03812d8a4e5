package testutil

import (
	"strings"
	"testing"

	"github.com/firefly-engineering/ai-pod/internal/config"
)

func TestLoadSettingsFixture_Valid(t *testing.T) {
	t.Setenv(config.EnvRuntime, "")
	t.Setenv(config.EnvNotifyPort, "")

	s, err := LoadSettingsFixture("valid_config.toml", t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettingsFixture() error: %v", err)
	}

	if s.Runtime != "docker" {
		t.Errorf("Runtime = %q, want docker", s.Runtime)
	}
	if s.NotifyPort != 9911 {
		t.Errorf("NotifyPort = %d, want 9911", s.NotifyPort)
	}
	if s.HostGateway != "host.docker.internal" {
		t.Errorf("HostGateway = %q", s.HostGateway)
	}
}

func TestLoadSettingsFixture_Invalid(t *testing.T) {
	t.Setenv(config.EnvRuntime, "")
	t.Setenv(config.EnvNotifyPort, "")

	if _, err := LoadSettingsFixture("invalid_config.toml", t.TempDir()); err == nil {
		t.Error("invalid fixture should fail to load")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture("nope.toml"); err == nil {
		t.Error("LoadFixture() should fail for a missing fixture")
	}
}

func TestUserSettingsFixture(t *testing.T) {
	data := string(UserSettingsFixture())
	if !strings.Contains(data, "//") || !strings.Contains(data, `"Stop"`) {
		t.Errorf("fixture = %s", data)
	}
}
