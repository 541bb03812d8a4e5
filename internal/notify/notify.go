// Package notify delivers desktop notifications through the platform's
// notification command.
package notify

import (
	"context"
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/firefly-engineering/ai-pod/internal/system"
)

// Desktop sends notifications with notify-send on Linux and osascript on
// macOS.
type Desktop struct {
	// Executor defaults to system.DefaultExecutor().
	Executor system.CommandExecutor

	// GOOS selects the platform command; defaults to runtime.GOOS.
	GOOS string
}

// NewDesktop returns a notifier for the current platform.
func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) executor() system.CommandExecutor {
	if d.Executor != nil {
		return d.Executor
	}
	return system.DefaultExecutor()
}

// Command returns the command line that shows a notification.
func (d *Desktop) Command(title, message string) (string, []string, error) {
	goos := d.GOOS
	if goos == "" {
		goos = goruntime.GOOS
	}

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "notify-send", []string{"--app-name=ai-pod", "--", title, message}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleString(message), appleString(title))
		return "osascript", []string{"-e", script}, nil
	default:
		return "", nil, fmt.Errorf("desktop notifications are not supported on %s", goos)
	}
}

// Notify shows a notification.
func (d *Desktop) Notify(ctx context.Context, title, message string) error {
	name, args, err := d.Command(title, message)
	if err != nil {
		return err
	}
	if _, err := d.executor().Output(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
