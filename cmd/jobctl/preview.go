package main

import (
	"encoding/json"

	"jobtracker/internal/preview"

	"github.com/spf13/cobra"
)

var previewHeadless bool

var previewCmd = &cobra.Command{
	Use:   "preview <url>",
	Short: "Show what a job link prefills",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if previewHeadless {
			cfg.Preview.Headless = true
		}
		res, err := preview.New(cfg.Preview, log).Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	previewCmd.Flags().BoolVar(&previewHeadless, "headless", false, "fall back to headless Chrome for script-rendered pages")
}
