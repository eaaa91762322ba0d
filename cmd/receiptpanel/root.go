package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "receiptpanel",
	Short: "Energy receipt panel for Home Assistant",
	Long: `receiptpanel aggregates per-user energy meters from Home Assistant,
keeps the selection and date range of the panel and requests PDF receipts
from the generator service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE)")
}

// loadConfig loads defaults, the config file and the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config errors: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zap.Must(zapCfg.Build())
}

func safePrintConfig(cfg config.Config) {
	slog.Info("Using", "config", cfg.Redacted())
}

// openHistory opens the history database, creating its directory
func openHistory(path string) (*history.Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return history.New(path)
}
