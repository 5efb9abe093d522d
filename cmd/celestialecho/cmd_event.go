package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/celestialecho/internal/state"
)

var eventListLimit int

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventListCmd)
	eventListCmd.Flags().IntVar(&eventListLimit, "limit", 50, "maximum number of events to list")
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Inspect recorded echo events",
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded echo events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		events, err := state.Open(cfg.DatabaseFile())
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer events.Close()

		ctx := context.Background()
		list, err := events.List(ctx, eventListLimit)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBODY\tREPLIED\tROUND TRIP\tDEADLINE\tCREATED")
		for _, e := range list {
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\t%s\n",
				e.ID,
				e.CelestialBody,
				e.Replied,
				(time.Duration(e.RoundTrip * float64(time.Second))).Round(time.Second),
				e.Deadline.Format("2006-01-02 15:04:05"),
				e.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}
