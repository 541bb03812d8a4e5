// Package config provides path layout and settings loading for ai-pod.
//
// # Paths
//
// Everything ai-pod persists lives under one directory, ~/.ai-pod by
// default ($AI_POD_HOME overrides it):
//
//	Dockerfile             image recipe (written on first run)
//	image.sha256           digest of the recipe the current image was built from
//	server.pid             control-plane daemon PID
//	server.log             daemon stdout/stderr
//	server.lock            serializes daemon start-up
//	locks/<name>.lock      serializes container creation per workspace
//	audit/<name>.jsonl     lifecycle events per workspace
//	runtime-settings.json  tool settings copied into new containers
//	runtime-CLAUDE.md      tool instructions copied into new containers
//
// # Settings
//
// An optional config.toml tunes the defaults:
//
//	runtime      = "auto"            # auto, podman, docker, or engine
//	image        = "ai-pod:latest"
//	notify_port  = 9876
//	dockerfile   = "Dockerfile"      # relative to the config directory
//	host_gateway = "host.containers.internal"
//
// AI_POD_RUNTIME and AI_POD_NOTIFY_PORT override the file. Settings are
// validated after loading.
package config
