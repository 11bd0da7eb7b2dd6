package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signflow/internal/api"
	"signflow/internal/daemonctl"
	"signflow/internal/translate"
)

type stateCall func(context.Context, *daemonctl.Client) (translate.Snapshot, error)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"s"},
		Short:   "Drive the daemon translation session",
	}
	sessionCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Output as JSON")

	// run executes call against the daemon and prints the resulting state.
	run := func(cmd *cobra.Command, call stateCall) error {
		return ctx.withClient(func(client *daemonctl.Client) error {
			snap, err := call(cmd.Context(), client)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap, asJSON)
		})
	}

	var settle bool
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.State(c, settle)
			})
		},
	}
	stateCmd.Flags().BoolVar(&settle, "settle", false, "Wait for pending remote work first")

	textCmd := &cobra.Command{
		Use:   "text <text...>",
		Short: "Replace the source text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := translateInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.SetText(c, text)
			})
		},
	}

	spokenCmd := &cobra.Command{
		Use:   "spoken <language|auto>",
		Short: "Set the spoken language; auto enables detection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lang *string
			if value := strings.TrimSpace(args[0]); !strings.EqualFold(value, "auto") {
				lang = &value
			}
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.SetSpokenLanguage(c, lang)
			})
		},
	}

	signedCmd := &cobra.Command{
		Use:   "signed <language>",
		Short: "Set the signed language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.SetSignedLanguage(c, args[0])
			})
		},
	}

	modeCmd := &cobra.Command{
		Use:   "mode <webcam|upload|text>",
		Short: "Switch the input mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := translate.ParseInputMode(args[0]); err != nil {
				return err
			}
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.SetInputMode(c, args[0])
			})
		},
	}

	describeCmd := &cobra.Command{
		Use:   "describe <fsw>",
		Short: "Request the description of one sign token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				if _, err := client.Describe(c, args[0]); err != nil {
					return translate.Snapshot{}, err
				}
				return client.State(c, true)
			})
		},
	}

	poseCmd := &cobra.Command{
		Use:   "pose <reference>",
		Short: "Use an uploaded pose artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.ImportPose(c, args[0])
			})
		},
	}

	var resetVideo bool
	videoCmd := &cobra.Command{
		Use:   "video [reference]",
		Short: "Set or reset the rendered video reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetVideo == (len(args) == 1) {
				return fmt.Errorf("give either a reference or --reset")
			}
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				if resetVideo {
					return client.ResetVideo(c)
				}
				return client.SetVideo(c, args[0])
			})
		},
	}
	videoCmd.Flags().BoolVar(&resetVideo, "reset", false, "Drop the current video reference")

	var initReq api.InitRequest
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Apply the one-time initial overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return client.Init(c, initReq)
			})
		},
	}
	initCmd.Flags().StringVar(&initReq.URL, "url", "", "URL whose query carries sil, spl and text")
	initCmd.Flags().StringVar(&initReq.SignedLanguage, "signed", "", "Initial signed language")
	initCmd.Flags().StringVar(&initReq.SpokenLanguage, "spoken", "", "Initial spoken language")
	initCmd.Flags().StringVar(&initReq.Text, "text", "", "Initial source text")

	sessionCmd.AddCommand(
		stateCmd,
		textCmd,
		spokenCmd,
		signedCmd,
		simpleStateCommand("flip", "Swap the translation direction", run, (*daemonctl.Client).Flip),
		modeCmd,
		simpleStateCommand("suggest", "Ask for a normalized rewrite of the text", run, (*daemonctl.Client).Suggest),
		simpleStateCommand("pivot", "Translate the text through the pivot language", run, (*daemonctl.Client).Pivot),
		simpleStateCommand("recompute", "Regenerate sign notation and pose", run, (*daemonctl.Client).Recompute),
		describeCmd,
		poseCmd,
		videoCmd,
		initCmd,
		newSessionExportCommand(ctx),
		newSessionConnectivityCommand(ctx, &asJSON),
		newSessionNoticesCommand(ctx, &asJSON),
	)
	return sessionCmd
}

// clientMethod matches method expressions such as (*daemonctl.Client).Flip.
type clientMethod func(*daemonctl.Client, context.Context) (translate.Snapshot, error)

func simpleStateCommand(use, short string, run func(*cobra.Command, stateCall) error, method clientMethod) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(c context.Context, client *daemonctl.Client) (translate.Snapshot, error) {
				return method(client, c)
			})
		},
	}
}

func newSessionExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Save the current video or pose on the daemon host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve export dir: %w", err)
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				path, err := client.Export(cmd.Context(), abs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
				return nil
			})
		},
	}
}

func newSessionConnectivityCommand(ctx *commandContext, asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "connectivity <online|offline|auto>",
		Short: "Pin or release the connectivity state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var online *bool
			switch strings.ToLower(strings.TrimSpace(args[0])) {
			case "online":
				v := true
				online = &v
			case "offline":
				v := false
				online = &v
			case "auto":
			default:
				return fmt.Errorf("unknown connectivity mode %q (want online, offline or auto)", args[0])
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				status, err := client.SetConnectivity(cmd.Context(), online)
				if err != nil {
					return err
				}
				if *asJSON {
					return writeJSON(cmd, status)
				}
				stdout := cmd.OutOrStdout()
				kind, detail := statusOK, "online"
				if !status.Online {
					kind, detail = statusWarn, "offline"
				}
				if status.Override == nil {
					detail += " (automatic)"
				}
				fmt.Fprintln(stdout, renderStatusLine("Connectivity", kind, detail, shouldColorize(stdout)))
				return nil
			})
		},
	}
}

func newSessionNoticesCommand(ctx *commandContext, asJSON *bool) *cobra.Command {
	var since uint64
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "List recent session notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.Notices(cmd.Context(), since)
				if err != nil {
					return err
				}
				if *asJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Notices) == 0 {
					fmt.Fprintln(stdout, "No notices")
					return nil
				}
				rows := make([][]string, 0, len(resp.Notices))
				for _, n := range resp.Notices {
					rows = append(rows, []string{strconv.FormatUint(n.Sequence, 10), n.Time, n.Level, n.Message})
				}
				fmt.Fprint(stdout, renderTable([]string{"#", "Time", "Level", "Message"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show notices after this sequence")
	return cmd
}
