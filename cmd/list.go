package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/ai-pod/internal/runtime"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List ai-pod containers",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", formatTable, "Output format: table, json, or yaml")
	rootCmd.AddCommand(listCmd)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func runList(cmd *cobra.Command, args []string) error {
	if err := checkFormat(listOutput, formatTable, formatJSON, formatYAML); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	controller, err := a.Controller()
	if err != nil {
		return err
	}

	containers, err := controller.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listOutput != formatTable {
		if containers == nil {
			containers = []*runtime.ContainerInfo{}
		}
		return writeStructured(out, listOutput, containers)
	}

	if len(containers) == 0 {
		logInfo("No ai-pod containers found.")
		return nil
	}

	fmt.Fprintln(out, containerTable(containers))
	return nil
}

func containerTable(containers []*runtime.ContainerInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers("NAME", "STATUS", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, c := range containers {
		t.Row(c.Name, formatContainerStatus(c), c.CreatedAt)
	}
	return t.Render()
}

func formatContainerStatus(c *runtime.ContainerInfo) string {
	switch c.Status {
	case runtime.StatusRunning:
		return "● running"
	case runtime.StatusStopped:
		return "○ stopped"
	default:
		if c.Detail != "" {
			return c.Detail
		}
		return string(c.Status)
	}
}
