package main

import (
	"fmt"
	"os"

	"jobtracker/internal/config"
	"jobtracker/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "Operator tooling for the job application tracker",
	Long: `jobctl runs maintenance tasks against the same configuration as the
server: database migrations, job link previews, sign-in links and a tail
of record change events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, previewCmd, magicLinkCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadEnv() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
