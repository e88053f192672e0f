package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arbor/app/core/interaction/render"
	"arbor/app/pkg/logger"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the task tree",
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	if err := logger.InitQuiet("output/logs"); err != nil {
		return err
	}
	manager, err := openManager()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	state, err := openState(manager)
	if err != nil {
		return fmt.Errorf("open task state: %w", err)
	}

	tasks := state.Tasks()
	render.TaskTree(os.Stdout, tasks)
	render.Summary(os.Stdout, tasks)
	return nil
}
