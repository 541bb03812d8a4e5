package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/daemon"
	poderrors "github.com/firefly-engineering/ai-pod/internal/errors"
	"github.com/firefly-engineering/ai-pod/internal/logging"
	"github.com/firefly-engineering/ai-pod/internal/notify"
	"github.com/firefly-engineering/ai-pod/internal/server"
)

var serveCmd = &cobra.Command{
	Use:    daemon.ServeCommand,
	Short:  "Run the notification server in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	port, err := a.NotifyPort(notifyPort)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(&server.Config{
		ListenAddr: server.ListenAddr(port),
		Notifier:   notify.NewDesktop(),
		Logger:     logging.Logger,
	})
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return poderrors.DaemonError("notification server failed", err)
	}
	return nil
}
