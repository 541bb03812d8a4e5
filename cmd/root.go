package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/launch"
	"github.com/firefly-engineering/ai-pod/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool

	notifyPort int
	rebuild    bool

	launchWorkdir           string
	launchNoCredentialCheck bool
)

var rootCmd = &cobra.Command{
	Use:   "ai-pod",
	Short: "Run Claude Code in a per-workspace container",
	Long: `ai-pod launches Claude Code inside a podman or docker container.

Each workspace gets its own long-lived container:
  - The workspace is mounted at /app
  - Tool state persists in a named volume
  - A local notification server tells you when a task finishes

Run without a subcommand to launch (or re-attach to) the container for the
current directory.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
	RunE: runLaunch,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().IntVar(&notifyPort, "notify-port", 0, "Notification server port (default from config, 9876)")
	rootCmd.PersistentFlags().BoolVar(&rebuild, "rebuild", false, "Rebuild the image even if it is up to date")

	rootCmd.Flags().StringVarP(&launchWorkdir, "workdir", "w", "", "Workspace directory (default: current directory)")
	rootCmd.Flags().BoolVar(&launchNoCredentialCheck, "no-credential-check", false, "Skip scanning the workspace for credential files")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func runLaunch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	_, err = newLauncher(a).Run(cmd.Context(), launch.Options{
		Workdir:             launchWorkdir,
		Rebuild:             rebuild,
		NotifyPort:          notifyPort,
		SkipCredentialCheck: launchNoCredentialCheck,
	})
	return err
}
