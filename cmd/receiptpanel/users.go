package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/berfenger/receiptpanel/internal/adapter/homeassistant"
	"github.com/berfenger/receiptpanel/internal/core/actor"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	usersFormat string
	usersOutput string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Print the aggregated user list",
	Long: `Fetches the current states and registries from Home Assistant once and
prints the aggregated users as json, yaml or an xlsx workbook.`,
	RunE: runUsers,
}

func init() {
	usersCmd.Flags().StringVarP(&usersFormat, "format", "f", "json", "Output format (json, yaml or xlsx)")
	usersCmd.Flags().StringVarP(&usersOutput, "output", "o", "", "Output file (default is stdout, required for xlsx)")
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	if usersFormat == "xlsx" && usersOutput == "" {
		return errors.New("xlsx output needs --output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	client, err := homeassistant.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*cfg.HomeAssistantTimeout())
	defer cancel()

	connected := make(chan struct{}, 1)
	client.OnConnected = func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	}
	go client.Run(ctx)

	snapshot, err := client.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching states: %w", err)
	}

	var registry *domain.Registry
	select {
	case <-connected:
		registry, err = client.GetRegistry(ctx)
		if err != nil {
			logger.Warn("registry unavailable, locations unassigned", zap.Error(err))
			registry = nil
		}
	case <-ctx.Done():
		logger.Warn("websocket not connected, locations unassigned")
	}

	users := actor.NewConfiguredAggregator(cfg, logger).Aggregate(snapshot, registry)

	out := cmd.OutOrStdout()
	if usersOutput != "" {
		f, err := os.Create(usersOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return writeUsers(out, usersFormat, users)
}

func writeUsers(w io.Writer, format string, users []domain.UserRecord) error {
	if users == nil {
		users = []domain.UserRecord{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(users); err != nil {
			return err
		}
		return enc.Close()
	case "xlsx":
		data, err := export.UsersWorkbook(users)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
