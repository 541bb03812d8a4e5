package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/daemon"
	"github.com/firefly-engineering/ai-pod/internal/health"
)

var statusOutput string

var serverStatusCmd = &cobra.Command{
	Use:   "server-status",
	Short: "Show the notification server's state",
	Args:  cobra.NoArgs,
	RunE:  runServerStatus,
}

var stopServerCmd = &cobra.Command{
	Use:   "stop-server",
	Short: "Stop the notification server",
	Args:  cobra.NoArgs,
	RunE:  runStopServer,
}

func init() {
	serverStatusCmd.Flags().StringVarP(&statusOutput, "output", "o", formatText, "Output format: text, json, or yaml")
	rootCmd.AddCommand(serverStatusCmd)
	rootCmd.AddCommand(stopServerCmd)
}

func runServerStatus(cmd *cobra.Command, args []string) error {
	if err := checkFormat(statusOutput, formatText, formatJSON, formatYAML); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	port, err := a.NotifyPort(notifyPort)
	if err != nil {
		return err
	}

	report := a.Supervisor(port).Status(cmd.Context())

	out := cmd.OutOrStdout()
	if statusOutput != formatText {
		return writeStructured(out, statusOutput, report)
	}

	fmt.Fprintf(out, "Notification server: %s\n", formatDaemonStatus(report.Status))
	if report.PIDFilePresent && report.PID == 0 {
		fmt.Fprintf(out, "  PID:     unreadable PID file\n")
	} else if report.PID != 0 {
		fmt.Fprintf(out, "  PID:     %d\n", report.PID)
	} else {
		fmt.Fprintf(out, "  PID:     -\n")
	}
	fmt.Fprintf(out, "  Process: %s\n", boolStatus(report.ProcessAlive))
	fmt.Fprintf(out, "  Health:  %s\n", boolStatus(report.Healthy))
	if report.ProbeError != "" {
		fmt.Fprintf(out, "  Probe:   %s\n", report.ProbeError)
	}
	fmt.Fprintf(out, "  Port:    %d\n", report.Port)
	return nil
}

func formatDaemonStatus(status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return "✓ healthy"
	case health.StatusUnhealthy:
		return "⚠ unhealthy"
	case health.StatusStale:
		return "○ stale PID file"
	case health.StatusNotRunning:
		return "● not running"
	default:
		return string(status)
	}
}

func runStopServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	port, err := a.NotifyPort(notifyPort)
	if err != nil {
		return err
	}

	result, err := a.Supervisor(port).Stop()
	if err != nil {
		return err
	}

	switch result {
	case daemon.Stopped:
		logSuccess("Notification server stopped.")
	case daemon.StaleRemoved:
		logWarning("Notification server was not running; removed stale PID file.")
	case daemon.NotRunning:
		logInfo("Notification server is not running.")
	}
	return nil
}
