package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"arbor/app/core/forest"
	"arbor/app/core/interaction/render"
	"arbor/app/pkg/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprint the task tree whenever the state file changes",
	Long: `Follows the task state file on disk and reprints the tree after every
change, whether it came from another arbor process or a text editor.
Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	printTree := func(tasks []forest.Task) {
		fmt.Printf("\n-- %s --\n", time.Now().Format("15:04:05"))
		render.TaskTree(os.Stdout, tasks)
		render.Summary(os.Stdout, tasks)
	}

	fmt.Printf("Watching %s\n", state.Path())
	printTree(state.Tasks())
	return state.Watch(ctx, printTree)
}
