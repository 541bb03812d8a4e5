package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/go-containerregistry/pkg/name"
)

const (
	DefaultDirName     = ".ai-pod"
	DefaultImage       = "ai-pod:latest"
	DefaultNotifyPort  = 9876
	DefaultRuntime     = "auto"
	DefaultDockerfile  = "Dockerfile"
	DefaultHostGateway = "host.containers.internal"

	EnvHome       = "AI_POD_HOME"
	EnvRuntime    = "AI_POD_RUNTIME"
	EnvNotifyPort = "AI_POD_NOTIFY_PORT"
)

//go:embed default.Dockerfile
var defaultDockerfile []byte

// DefaultDockerfileContent returns the recipe written on first run.
func DefaultDockerfileContent() []byte {
	return append([]byte(nil), defaultDockerfile...)
}

// validRuntimes lists the accepted values of Settings.Runtime.
var validRuntimes = map[string]bool{"auto": true, "podman": true, "docker": true, "engine": true}

// Paths holds every file location ai-pod reads or writes.
type Paths struct {
	HomeDir    string
	ConfigDir  string
	ConfigFile string

	ImageRecord string
	PIDFile     string
	LogFile     string
	DaemonLock  string
	LocksDir    string
	AuditDir    string

	RuntimeSettings string
	RuntimeClaudeMD string

	UserSettings string
	UserClaudeMD string
}

// NewPaths lays out all paths under configDir, with user tool settings
// read from homeDir/.claude.
func NewPaths(configDir, homeDir string) *Paths {
	return &Paths{
		HomeDir:         homeDir,
		ConfigDir:       configDir,
		ConfigFile:      filepath.Join(configDir, "config.toml"),
		ImageRecord:     filepath.Join(configDir, "image.sha256"),
		PIDFile:         filepath.Join(configDir, "server.pid"),
		LogFile:         filepath.Join(configDir, "server.log"),
		DaemonLock:      filepath.Join(configDir, "server.lock"),
		LocksDir:        filepath.Join(configDir, "locks"),
		AuditDir:        filepath.Join(configDir, "audit"),
		RuntimeSettings: filepath.Join(configDir, "runtime-settings.json"),
		RuntimeClaudeMD: filepath.Join(configDir, "runtime-CLAUDE.md"),
		UserSettings:    filepath.Join(homeDir, ".claude", "settings.json"),
		UserClaudeMD:    filepath.Join(homeDir, ".claude", "CLAUDE.md"),
	}
}

// DefaultPaths returns the paths rooted at ~/.ai-pod, or at $AI_POD_HOME
// when set.
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	configDir := os.Getenv(EnvHome)
	if configDir == "" {
		configDir = filepath.Join(home, DefaultDirName)
	}
	return NewPaths(configDir, home), nil
}

// Init creates the config directory and writes the default Dockerfile when
// the configured recipe does not exist yet. It reports whether the recipe
// was created.
func Init(p *Paths, s *Settings) (bool, error) {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", p.ConfigDir, err)
	}

	recipe, err := s.RecipePath(p.ConfigDir)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(recipe); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat %s: %w", recipe, err)
	}

	if err := os.MkdirAll(filepath.Dir(recipe), 0755); err != nil {
		return false, fmt.Errorf("failed to create recipe directory: %w", err)
	}
	if err := os.WriteFile(recipe, defaultDockerfile, 0644); err != nil {
		return false, fmt.Errorf("failed to write default Dockerfile: %w", err)
	}
	return true, nil
}

// Settings is the user-tunable configuration from config.toml.
type Settings struct {
	Runtime     string `toml:"runtime"`
	Image       string `toml:"image"`
	NotifyPort  int    `toml:"notify_port"`
	Dockerfile  string `toml:"dockerfile"`
	HostGateway string `toml:"host_gateway"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Runtime:     DefaultRuntime,
		Image:       DefaultImage,
		NotifyPort:  DefaultNotifyPort,
		Dockerfile:  DefaultDockerfile,
		HostGateway: DefaultHostGateway,
	}
}

// LoadSettings reads config.toml at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		md, err := toml.Decode(string(data), settings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := settings.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return settings, nil
}

func (s *Settings) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvRuntime); v != "" {
		s.Runtime = v
	}
	if v := getenv(EnvNotifyPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a port number", EnvNotifyPort, v)
		}
		s.NotifyPort = port
	}
	return nil
}

// Validate checks that the Settings are usable.
func (s *Settings) Validate() error {
	if !validRuntimes[s.Runtime] {
		return fmt.Errorf("invalid runtime %q (must be auto, podman, docker, or engine)", s.Runtime)
	}
	if err := ValidatePort(s.NotifyPort); err != nil {
		return err
	}
	if _, err := name.ParseReference(s.Image); err != nil {
		return fmt.Errorf("invalid image %q: %w", s.Image, err)
	}
	if s.Dockerfile == "" {
		return fmt.Errorf("dockerfile is required")
	}
	if s.HostGateway == "" || strings.ContainsAny(s.HostGateway, " \t:/") {
		return fmt.Errorf("invalid host_gateway %q", s.HostGateway)
	}
	return nil
}

// ValidatePort checks that port is a usable TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("notify port must be between 1 and 65535 (got %d)", port)
	}
	return nil
}

// RecipePath resolves the Dockerfile inside configDir. Relative paths and
// symlinks cannot escape configDir; absolute paths are used as given.
func (s *Settings) RecipePath(configDir string) (string, error) {
	if filepath.IsAbs(s.Dockerfile) {
		return s.Dockerfile, nil
	}
	path, err := securejoin.SecureJoin(configDir, s.Dockerfile)
	if err != nil {
		return "", fmt.Errorf("invalid dockerfile path %q: %w", s.Dockerfile, err)
	}
	return path, nil
}
