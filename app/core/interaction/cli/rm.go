package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

var rmCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"remove"},
	Short:   "Remove tasks",
	Long: `Removes the task with the given id, including its subtasks. With
--title, removes every task at any depth whose title contains the
given text instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	rmCmd.Flags().String("id", "", "remove the task with this exact id")
	rmCmd.Flags().String("title", "", "remove every task whose title contains this text")
	rootCmd.AddCommand(rmCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := logger.InitQuiet("output/logs"); err != nil {
		return err
	}

	id, _ := cmd.Flags().GetString("id")
	if len(args) == 1 {
		id = args[0]
	}
	title, _ := cmd.Flags().GetString("title")
	if strings.TrimSpace(id) == "" && strings.TrimSpace(title) == "" {
		return fmt.Errorf("provide a task id or --title")
	}

	manager, err := openManager()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	state, err := openState(manager)
	if err != nil {
		return fmt.Errorf("open task state: %w", err)
	}

	next, removed := forest.RemoveMatching(state.Tasks(), id, title)
	if removed == 0 {
		return fmt.Errorf("no tasks matched")
	}
	if err := state.Replace(next); err != nil {
		return fmt.Errorf("save task state: %w", err)
	}

	fmt.Printf("Removed %d task(s)\n", removed)
	return nil
}
