package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"signflow/internal/api"
	"signflow/internal/daemonctl"
	"signflow/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the signflow daemon",
	}
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var initURL string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), client, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.launchConfigPath(),
				InitURL:    initURL,
			}, 10*time.Second)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&initURL, "init-url", "", "Initial overrides as a URL query (sil, spl, text)")
	return cmd
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), client, ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			running := err == nil && status.Running
			if err != nil && !daemonctl.IsUnavailable(err) {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "Not running", colorize))
				return nil
			}
			for _, line := range daemonStatusLines(status, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func daemonStatusLines(status api.DaemonStatus, colorize bool) []string {
	lines := []string{
		renderStatusLine("Daemon", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize),
		renderStatusLine("Session", statusInfo, status.SessionID, colorize),
		renderStatusLine("Initialized", statusInfo, yesNo(status.Initialized), colorize),
	}

	conn := status.Connectivity
	connKind, connDetail := statusOK, "online"
	if !conn.Online {
		connKind, connDetail = statusWarn, "offline"
	}
	switch {
	case conn.Forced:
		connDetail += " (forced by config)"
	case conn.Override != nil:
		connDetail += " (manual override)"
	}
	lines = append(lines, renderStatusLine("Connectivity", connKind, connDetail, colorize))

	if status.HistoryDBPath != "" {
		lines = append(lines, renderStatusLine("History", statusOK, status.HistoryDBPath, colorize))
	} else {
		lines = append(lines, renderStatusLine("History", statusWarn, "disabled", colorize))
	}
	lines = append(lines, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	return lines
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.InitURL, "init-url", "", "Initial overrides as a URL query (sil, spl, text)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.Development, "development", false, "Enable development logging")
	return cmd
}

// launchConfigPath forwards the explicit --config, or the resolved file
// when one was found.
func (c *commandContext) launchConfigPath() string {
	if explicit := c.configFlagValue(); explicit != "" {
		return explicit
	}
	if c.configPath == "" {
		return ""
	}
	if _, err := os.Stat(c.configPath); err != nil {
		return ""
	}
	return c.configPath
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
