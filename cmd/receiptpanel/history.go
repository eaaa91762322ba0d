package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/berfenger/receiptpanel/internal/history"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the generation history",
	Long:  `Displays the recorded generation requests and their outcome, newest first.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DEFAULT_LIST_LIMIT, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.New("history is disabled, set history.path")
	}

	store, err := openHistory(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No generation recorded")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "----------------------------------------------------------------------------")
	fmt.Fprintf(out, "%-20s  %-23s  %-15s  %5s  %s\n", "Dispatched", "Range", "Status", "Users", "Detail")
	fmt.Fprintln(out, "----------------------------------------------------------------------------")
	for _, e := range entries {
		fmt.Fprintf(out, "%-20s  %-23s  %-15s  %5d  %s\n",
			e.DispatchedAt.Local().Format("2006-01-02 15:04:05"),
			strings.TrimSpace(e.StartDate+" "+e.EndDate),
			e.Status, len(e.EntityIds), e.Detail)
	}
	return nil
}
