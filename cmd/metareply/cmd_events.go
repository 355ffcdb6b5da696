package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/metareply/internal/state"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().Int("limit", 20, "maximum number of deliveries to show")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent stored webhook deliveries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		limit, _ := cmd.Flags().GetInt("limit")

		log := state.NewEventLog(filepath.Join(cfg.DataDir, "webhook_events.json"), 100)
		if err := log.Load(); err != nil {
			return fmt.Errorf("load event log: %w", err)
		}

		deliveries := log.Snapshot()
		if len(deliveries) == 0 {
			fmt.Println("No stored webhook deliveries.")
			return nil
		}
		if limit > 0 && len(deliveries) > limit {
			deliveries = deliveries[len(deliveries)-limit:]
		}

		for _, d := range deliveries {
			fmt.Fprintf(os.Stdout, "%s  %s\n", d.Timestamp.Format(time.RFC3339), string(d.Payload))
		}
		return nil
	},
}
