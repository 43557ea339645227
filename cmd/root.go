package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "procurement-leads",
	Short: "Turns procurement results into enriched bidder leads",
	Long:  "Reads public procurement result pages, PDFs and text, extracts disqualified and ineligible bidders with a generative model, and enriches them from the CNPJ registry.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
