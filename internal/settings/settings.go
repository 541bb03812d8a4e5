// Package settings materializes the tool instructions and settings that are
// copied into a freshly created container.
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/tidwall/jsonc"

	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/system"
)

// ContainerDir is where the files are copied inside the container.
const ContainerDir = "/home/claude/.claude"

// Files are the host paths of materialized files and their destinations.
type Files struct {
	ClaudeMD     string
	Settings     string
	ClaudeMDDest string
	SettingsDest string
}

// Materializer writes the runtime files from the user's own ones.
type Materializer struct {
	// HostGateway is the alias containers use to reach the host.
	HostGateway string

	UserClaudeMD string
	UserSettings string

	OutClaudeMD string
	OutSettings string

	// FS defaults to system.DefaultFS().
	FS system.FileSystem
}

func (m *Materializer) fs() system.FileSystem {
	if m.FS != nil {
		return m.FS
	}
	return system.DefaultFS()
}

// Materialize writes both runtime files for a daemon listening on port.
func (m *Materializer) Materialize(port int) (Files, error) {
	claudeMD, err := m.ClaudeMD()
	if err != nil {
		return Files{}, err
	}
	if err := m.fs().WriteFile(m.OutClaudeMD, []byte(claudeMD), 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write runtime CLAUDE.md: %w", err)
	}

	settings, err := m.Settings(port)
	if err != nil {
		return Files{}, err
	}
	if err := m.fs().WriteFile(m.OutSettings, settings, 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write runtime settings: %w", err)
	}

	return Files{
		ClaudeMD:     m.OutClaudeMD,
		Settings:     m.OutSettings,
		ClaudeMDDest: ContainerDir + "/CLAUDE.md",
		SettingsDest: ContainerDir + "/settings.json",
	}, nil
}

// Preamble describes the container environment to the tool.
func Preamble(hostGateway string) string {
	var b strings.Builder
	b.WriteString("# Container Environment\n")
	b.WriteString("You are running inside a container. To reach services on the host machine,\n")
	fmt.Fprintf(&b, "use `%s` instead of `localhost`.\n\n", hostGateway)
	fmt.Fprintf(&b, "For example: `curl http://%s:3000`\n\n", hostGateway)
	b.WriteString("Working directory: /app\n")
	return b.String()
}

// ClaudeMD returns the preamble followed by the user's CLAUDE.md, if any.
func (m *Materializer) ClaudeMD() (string, error) {
	content := Preamble(m.HostGateway)

	if !m.fs().Exists(m.UserClaudeMD) {
		return content, nil
	}
	existing, err := m.fs().ReadFile(m.UserClaudeMD)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", m.UserClaudeMD, err)
	}
	return content + "\n" + string(existing), nil
}

// HookCommand is the shell command the Stop hook runs.
func HookCommand(hostGateway string, port int) string {
	url := "http://" + hostGateway + ":" + strconv.Itoa(port) + "/notify"
	return shellquote.Join("curl", "-sf", "-X", "POST", url) + " || true"
}

// Settings returns the user's settings.json with hooks.Stop replaced by the
// notify hook. A missing or unparsable file starts from an empty object.
func (m *Materializer) Settings(port int) ([]byte, error) {
	root := map[string]any{}

	if m.fs().Exists(m.UserSettings) {
		raw, err := m.fs().ReadFile(m.UserSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", m.UserSettings, err)
		}
		parsed, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if parsed != nil {
			root = parsed
		}
	}

	hooks := map[string]any{}
	if existing, ok := root["hooks"]; ok {
		h, ok := existing.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("settings.json: hooks is not an object")
		}
		hooks = h
	}

	hooks["Stop"] = []any{
		map[string]any{
			"matcher": "*",
			"hooks": []any{
				map[string]any{
					"type":    "command",
					"command": HookCommand(m.HostGateway, port),
				},
			},
		},
	}
	root["hooks"] = hooks

	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return out, nil
}

// decode parses JSON with comments and trailing commas. Unparsable input
// yields (nil, nil) so the caller falls back to an empty object; a valid
// document whose root is not an object is an error.
func decode(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(jsonc.ToJSON(raw), &v); err != nil {
		logging.Warn("ignoring unparsable settings.json", "error", err)
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings.json is not an object")
	}
	return obj, nil
}
