package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"CoinChart/internal/chart/surface"
	"CoinChart/internal/di"
	"CoinChart/internal/domain/models"
	"CoinChart/internal/usecase"
)

var (
	renderSymbol string
	renderOut    string
	renderFormat string
)

func init() {
	renderCmd.Flags().StringVar(&renderSymbol, "symbol", "BTCUSDT", "symbol to chart")
	renderCmd.Flags().StringVar(&renderOut, "out", ".", "output directory")
	renderCmd.Flags().StringVar(&renderFormat, "format", surface.FormatPNG, "image format: png or svg")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch one symbol and write its three panes as images",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if renderFormat != surface.FormatPNG && renderFormat != surface.FormatSVG {
			return fmt.Errorf("unsupported format %q", renderFormat)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		manager, err := di.InitializeSessionManager(cfg)
		if err != nil {
			return err
		}
		defer manager.Close()

		s, err := manager.Create(cmd.Context(), renderSymbol, float64(cfg.Chart.Width), float64(cfg.Chart.Height))
		if err != nil {
			if s != nil && s.View().Status.Error != "" {
				return errors.New(s.View().Status.Error)
			}
			return err
		}
		if err := os.MkdirAll(renderOut, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		view := s.View()
		for _, pane := range models.AllPanes {
			path, err := writePane(s, pane)
			if err != nil {
				return err
			}
			cmd.Printf("%s: wrote %s\n", pane, path)
		}
		cmd.Printf("%s: %d candles, %d buy and %d sell signals, %d boxes\n",
			view.Status.Symbol, view.Candles, view.Buys, view.Sells, len(view.Overlay))
		return nil
	},
}

func writePane(s *usecase.Session, pane models.PaneID) (string, error) {
	name := fmt.Sprintf("%s_%s.%s", strings.ToLower(s.Symbol()), pane, renderFormat)
	path := filepath.Join(renderOut, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.Render(pane, renderFormat, f); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
