package testutil

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/firefly-engineering/ai-pod/internal/config"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadSettingsFixture writes a config.toml fixture to dir and loads it the
// way ai-pod does, environment overrides included.
func LoadSettingsFixture(name, dir string) (*config.Settings, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}
	return config.LoadSettings(path)
}

// UserSettingsFixture returns a user settings.json that uses comments,
// trailing commas and an existing Stop hook.
func UserSettingsFixture() []byte {
	data, err := LoadFixture("user_settings.jsonc")
	if err != nil {
		panic(err)
	}
	return data
}
