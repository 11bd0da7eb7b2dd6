package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signflow/internal/config"
	"signflow/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain translation history",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryHealthCommand(ctx))
	return historyCmd
}

// withHistory opens the local history database for the duration of fn.
func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled (set history.enabled = true)")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var opts history.ListOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if asJSON {
					if entries == nil {
						entries = []history.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				stdout := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(stdout, "History is empty")
					return nil
				}
				fmt.Fprint(stdout, renderTable(
					[]string{"ID", "Created", "Languages", "Signs", "Text"},
					historyRows(entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Only show entries from this session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func historyRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		spoken := e.SpokenLanguage
		if spoken == "" {
			spoken = "?"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			spoken + " → " + e.SignedLanguage,
			strconv.Itoa(len(e.Notation)),
			truncate(e.SourceText, 48),
		})
	}
	return rows
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one translation with its notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withHistory(ctx, func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("translation %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, entry)
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Translation "+args[0], colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, entry.CreatedAt.Local().Format(time.RFC3339), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Session", statusInfo, entry.SessionID, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Spoken language", statusInfo, entry.SpokenLanguage, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Signed language", statusInfo, entry.SignedLanguage, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Source text", statusInfo, quoteOrDash(entry.SourceText), colorize))
				if entry.PivotText != "" {
					fmt.Fprintln(stdout, renderStatusLine("Pivot text", statusInfo, quoteOrDash(entry.PivotText), colorize))
				}
				if entry.PoseReference != "" {
					fmt.Fprintln(stdout, renderStatusLine("Pose", statusInfo, entry.PoseReference, colorize))
				}
				for i, token := range entry.Notation {
					fmt.Fprintf(stdout, "%4d  %s\n", i+1, token)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete translations older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				retention := ctx.configValue().HistoryRetention()
				if cmd.Flags().Changed("days") {
					retention = time.Duration(days) * 24 * time.Hour
				}
				if retention <= 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Retention is unlimited; nothing pruned")
					return nil
				}
				removed, err := store.Prune(cmd.Context(), retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d translation(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Override history.retention_days")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every translation; resets an unreadable database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			store, err := history.Open(cfg)
			if err != nil {
				if resetErr := resetHistoryFiles(cfg); resetErr != nil {
					return fmt.Errorf("open history: %w; reset failed: %v", err, resetErr)
				}
				fmt.Fprintf(stdout, "History database was unreadable and has been reset (%s)\n", cfg.HistoryDBPath())
				return nil
			}
			defer store.Close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Cleared %d translation(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func resetHistoryFiles(cfg *config.Config) error {
	path := cfg.HistoryDBPath()
	for _, candidate := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func newHistoryHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, health)
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				kind, detail := statusOK, "integrity ok"
				if !health.IntegrityCheck {
					kind, detail = statusError, health.Error
				}
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, health.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Entries", statusInfo, strconv.Itoa(health.Entries), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity", kind, detail, colorize))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
