package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/ai-pod/internal/app"
	"github.com/firefly-engineering/ai-pod/internal/launch"
	"github.com/firefly-engineering/ai-pod/internal/logging"
)

// newApp builds the application context; replaced in tests.
var newApp = func() (*app.App, error) {
	return app.New()
}

// newLauncher builds the launch flow; replaced in tests.
var newLauncher = launch.New

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)

// Output formats accepted by --output.
const (
	formatText  = "text"
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (must be one of %v)", format, allowed)
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

func boolStatus(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
