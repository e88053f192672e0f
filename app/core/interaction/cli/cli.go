// Package cli implements the arbor command line interface. The bare
// command opens the interactive chat; subcommands cover scripted
// one-shot task operations.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	config "arbor/app/configs"
	"arbor/app/core/interaction/render"
	"arbor/app/core/store"
)

var (
	flagConfig  string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Hierarchical task manager with a conversational assistant",
	Long: `arbor keeps a tree of tasks that you can edit directly or by chatting
with an assistant that drives the same task tools. Run arbor with no
arguments to start the chat.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runChat,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			render.DisableColor()
			return
		}
		render.AutoDetect()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openManager() (*config.Manager, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	return config.NewManager(path)
}

func openState(manager *config.Manager) (*store.Store, error) {
	return store.Open(manager.Get().State.Path)
}
