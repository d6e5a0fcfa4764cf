package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"jobtracker/internal/domain/application"
	"jobtracker/internal/events"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail job application change events from NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return events.Watch(ctx, cfg.NATS, func(subject string, c application.Change) {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", c.At.Format(time.RFC3339), subject, c.Owner, c.ID, c.Status)
		})
	},
}
