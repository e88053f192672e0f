package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arbor/app/core/forest"
	"arbor/app/pkg/logger"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Adds a task to the top of the tree, or under a parent task when
--parent is given. The parent is matched by exact id or by
case-insensitive title substring.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringP("priority", "p", "", "task priority (low, medium, high)")
	addCmd.Flags().String("parent", "", "attach as a subtask of the matching task")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return fmt.Errorf("task title must not be empty")
	}
	rawPriority, _ := cmd.Flags().GetString("priority")
	priority, ok := forest.ParsePriority(rawPriority)
	if !ok {
		return fmt.Errorf("unknown priority %q; use low, medium, or high", rawPriority)
	}

	task := forest.New(title, priority)
	next := state.Tasks()
	if parent, _ := cmd.Flags().GetString("parent"); strings.TrimSpace(parent) != "" {
		var added bool
		next, added = forest.InsertSubtask(next, parent, task)
		if !added {
			return fmt.Errorf("no task matched %q", parent)
		}
	} else {
		next = append([]forest.Task{task}, next...)
	}
	if err := state.Replace(next); err != nil {
		return fmt.Errorf("save task state: %w", err)
	}

	fmt.Printf("Added %s: %s\n", task.ID, task.Title)
	return nil
}
