package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/identity"
	"github.com/firefly-engineering/ai-pod/internal/launch"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [DIR]",
	Short: "Remove a workspace's container and data volume",
	Long: `Stop and remove the container created for DIR (default: the current
directory), together with its data volume. The workspace itself is not
touched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	workspace, err := launch.Workspace(dir)
	if err != nil {
		return err
	}
	id := identity.Derive(workspace)

	a, err := newApp()
	if err != nil {
		return err
	}
	controller, err := a.Controller()
	if err != nil {
		return err
	}

	result, err := controller.Clean(cmd.Context(), id)
	if err != nil {
		return err
	}

	if !result.Existed {
		logInfo("Container %s does not exist for %s.", id.Name, workspace)
		return nil
	}
	if result.VolumeRemoved {
		logSuccess("Removed container %s and volume %s.", id.Name, id.Volume())
	} else {
		logSuccess("Removed container %s (no data volume found).", id.Name)
	}
	return nil
}
