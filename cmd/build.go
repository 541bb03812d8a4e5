package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/launch"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the container image if the Dockerfile changed",
	Long: `Build the container image from ~/.ai-pod/Dockerfile.

The image is rebuilt when it is missing or when the Dockerfile changed since
the last successful build. Use --rebuild to force a build.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	_, err = launch.Build(cmd.Context(), a, rebuild)
	return err
}
