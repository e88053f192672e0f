package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <task-id>",
	Short: "Flip a task between open and done",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

func runToggle(_ *cobra.Command, args []string) error {
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

	id := args[0]
	if _, ok := forest.FindByID(state.Tasks(), id); !ok {
		return fmt.Errorf("no task with id %q", id)
	}
	if err := state.Replace(forest.Toggle(state.Tasks(), id)); err != nil {
		return fmt.Errorf("save task state: %w", err)
	}

	task, _ := forest.FindByID(state.Tasks(), id)
	status := "open"
	if task.Completed {
		status = "done"
	}
	fmt.Printf("%s is now %s: %s\n", task.ID, status, task.Title)
	return nil
}
