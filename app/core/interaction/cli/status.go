package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"arbor/app/core/history"
	"arbor/app/core/runtime"
	"arbor/app/pkg/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a runtime status snapshot as JSON",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
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
	histDB, err := history.Open(manager.Get().History.Dir)
	if err != nil {
		return fmt.Errorf("open transcript database: %w", err)
	}
	defer histDB.Close()

	collector := &runtime.StatusCollector{
		Config:  manager,
		State:   state,
		History: history.NewStore(histDB),
	}
	data, err := json.Marshal(collector.Snapshot(cmd.Context()))
	if err != nil {
		return fmt.Errorf("encode status snapshot: %w", err)
	}
	os.Stdout.Write(pretty.Pretty(data))
	return nil
}
