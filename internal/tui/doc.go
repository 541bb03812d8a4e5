// Package tui provides terminal prompts for ai-pod.
//
// Confirm shows a yes/no prompt built on Bubble Tea, used before a
// workspace containing credential files is mounted into a container:
//
//	ok, err := tui.Confirm("Credential files found in /work/project:", files)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    // user declined; exit cleanly
//	}
//
// The default answer is no. Without a terminal on stdin the prompt reads a
// single line instead.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles/key - key bindings
//   - github.com/charmbracelet/lipgloss - Styling
package tui
