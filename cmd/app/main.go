package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"CoinChart/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coinchart",
	Short: "Multi-pane candlestick charts with signal annotations",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (defaults apply when empty)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
