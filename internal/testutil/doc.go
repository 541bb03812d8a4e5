// Package testutil provides test environments, fakes and fixtures.
//
// # Test Environment
//
// NewTestEnv builds an app.App around a MockRuntime, a MockExecutor for
// spawning the notification server, and fake process and health probes.
// State files are written under t.TempDir():
//
//	env := testutil.NewTestEnv(t)
//	ws := env.CreateWorkspace("project")
//	env.WriteRecipe("FROM scratch\n")
//
// # Fixtures
//
// Fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/invalid_config.toml
//	fixtures/user_settings.jsonc
//
// LoadSettingsFixture writes a config.toml fixture and loads it through
// config.LoadSettings, so validation and environment overrides apply.
package testutil
