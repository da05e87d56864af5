package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wine-value-finder",
	Short: "Wine list value analysis",
	Long:  "Parses photographed restaurant wine lists, enriches each wine with retail price and rating data from external sources, and ranks wines by value.",
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
