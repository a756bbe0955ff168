package main

import (
	"github.com/spf13/cobra"

	"CoinChart/internal/di"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chart HTTP and websocket server",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Wire DI: Initialize all dependencies
		app, err := di.InitializeApp(cfg)
		if err != nil {
			return err
		}

		// Run application (blocks until signal)
		return app.Run(cmd.Context())
	},
}
