package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signflow/internal/api"
	"signflow/internal/daemonctl"
	"signflow/internal/logs"
)

type logsOptions struct {
	lines     int
	follow    bool
	component string
	fromFile  bool
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logsOptions
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs",
		Long: "Show recent daemon log events from the API. When the daemon is not " +
			"running, or with --file, the current log file is read instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "signflow.log")
			if opts.fromFile {
				return printLogFile(cmd, logPath, opts)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			err = streamAPILogs(cmd.Context(), cmd.OutOrStdout(), client, opts)
			if daemonctl.IsUnavailable(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "daemon not running; reading %s\n", logPath)
				return printLogFile(cmd, logPath, opts)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new log lines")
	cmd.Flags().StringVar(&opts.component, "component", "", "Only show events from this component (API only)")
	cmd.Flags().BoolVar(&opts.fromFile, "file", false, "Read the log file even when the daemon is running")
	return cmd
}

func streamAPILogs(ctx context.Context, out io.Writer, client *daemonctl.Client, opts logsOptions) error {
	resp, err := client.Logs(ctx, daemonctl.LogQuery{Tail: true, Limit: opts.lines, Component: opts.component})
	if err != nil {
		return err
	}
	for _, evt := range resp.Events {
		fmt.Fprintln(out, formatLogEvent(evt))
	}
	if !opts.follow {
		return nil
	}

	cursor := resp.Next
	for {
		resp, err := client.Logs(ctx, daemonctl.LogQuery{Since: cursor, Follow: true, Component: opts.component})
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, formatLogEvent(evt))
		}
		if resp.Next > cursor {
			cursor = resp.Next
		}
	}
}

func printLogFile(cmd *cobra.Command, path string, opts logsOptions) error {
	lines, offset, err := logs.Last(path, opts.lines)
	if err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if !opts.follow {
		return nil
	}
	err = logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, func(line string) {
		fmt.Fprintln(out, line)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// formatLogEvent renders an event as one console line with sorted fields.
func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	ts := evt.Timestamp
	if parsed, err := time.Parse(time.RFC3339Nano, evt.Timestamp); err == nil {
		ts = parsed.Local().Format("15:04:05.000")
	}
	b.WriteString(ts)
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(evt.Level)))
	if evt.Component != "" {
		b.WriteString(" [" + evt.Component + "]")
	}
	b.WriteString(" " + evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + evt.Fields[k])
	}
	return b.String()
}
