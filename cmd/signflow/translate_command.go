package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"signflow/internal/config"
	"signflow/internal/connectivity"
	"signflow/internal/history"
	"signflow/internal/logging"
	"signflow/internal/translate"
)

type translateOptions struct {
	spoken    string
	signed    string
	initURL   string
	describe  bool
	exportDir string
	offline   bool
	noHistory bool
	asJSON    bool
	verbose   bool
	timeout   time.Duration
}

type translateOutput struct {
	State    translate.Snapshot `json:"state"`
	Notices  []translate.Notice `json:"notices,omitempty"`
	Exported string             `json:"exported,omitempty"`
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var opts translateOptions
	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text once without the daemon",
		Long: "Translate text into sign notation in a local session. Text is read from " +
			"the arguments, or from stdin when no arguments are given or the only argument is '-'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := translateInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runTranslate(cmd, cfg, text, opts)
		},
	}
	cmd.Flags().StringVar(&opts.spoken, "spoken", "", "Spoken language code (\"auto\" detects)")
	cmd.Flags().StringVar(&opts.signed, "signed", "", "Signed language code")
	cmd.Flags().StringVar(&opts.initURL, "init-url", "", "Initial overrides as a URL query (sil, spl, text)")
	cmd.Flags().BoolVar(&opts.describe, "describe", false, "Fetch a description for every sign token")
	cmd.Flags().StringVar(&opts.exportDir, "export", "", "Save the pose artifact into this directory")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip every remote service")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the translation")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log session activity to stderr")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Maximum time to wait for remote services")
	return cmd
}

func translateInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if len(args) == 0 {
		if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return "", fmt.Errorf("no text given; pass text as arguments or pipe it on stdin")
		}
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func runTranslate(cmd *cobra.Command, cfg *config.Config, text string, opts translateOptions) error {
	if opts.offline {
		cfg.Network.Offline = true
	}
	logger, err := cliLogger(cmd, cfg, opts.verbose)
	if err != nil {
		return err
	}

	var recorder translate.Recorder
	if cfg.History.Enabled && !opts.noHistory {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "translation is not recorded"),
			)
		} else {
			defer store.Close()
			recorder = store
		}
	}

	monitor := connectivity.New(connectivity.Options{
		Offline:  cfg.Network.Offline,
		ProbeURL: cfg.Network.ProbeURL,
		Timeout:  cfg.HTTPTimeout(),
	}, logger)
	waitCtx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	if !cfg.Network.Offline {
		monitor.Probe(waitCtx)
	}

	orch := translate.Build(cfg, logger, monitor, recorder, uuid.NewString())
	defer orch.Close()

	if err := startLocalSession(orch, text, opts); err != nil {
		return err
	}
	if err := orch.Wait(waitCtx); err != nil {
		return fmt.Errorf("wait for translation: %w", err)
	}

	if opts.describe {
		for _, token := range uniqueTokens(orch.Snapshot().SignNotation) {
			orch.RequestSignNotationDescription(token)
			if err := orch.Wait(waitCtx); err != nil {
				return fmt.Errorf("wait for description: %w", err)
			}
		}
	}

	output := translateOutput{State: orch.Snapshot()}
	if opts.exportDir != "" {
		client := &http.Client{Timeout: cfg.HTTPTimeout()}
		path, err := orch.Export(waitCtx, client, opts.exportDir)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		output.Exported = path
	}
	output.Notices = drainNotices(orch.Notices())

	if opts.asJSON {
		return writeJSON(cmd, output)
	}
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	renderSnapshot(stdout, output.State, colorize)
	if output.Exported != "" {
		fmt.Fprintf(stdout, "Saved %s\n", output.Exported)
	}
	stderr := cmd.ErrOrStderr()
	for _, n := range output.Notices {
		fmt.Fprintln(stderr, renderStatusLine("Notice", noticeKind(n.Level), n.Message, shouldColorize(stderr)))
	}
	return nil
}

// startLocalSession applies init values when given, otherwise the explicit
// language flags followed by the text.
func startLocalSession(orch *translate.Orchestrator, text string, opts translateOptions) error {
	if strings.TrimSpace(opts.initURL) != "" {
		values, err := translate.ParseInitURL(opts.initURL)
		if err != nil {
			return fmt.Errorf("parse init url: %w", err)
		}
		if values.Text == "" {
			values.Text = text
		}
		return orch.Initialize(values)
	}

	if signed := strings.TrimSpace(opts.signed); signed != "" {
		orch.SetSignedLanguage(signed)
	}
	switch spoken := strings.TrimSpace(opts.spoken); {
	case strings.EqualFold(spoken, "auto"):
		orch.SetSpokenLanguage(nil)
	case spoken != "":
		orch.SetSpokenLanguage(&spoken)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to translate")
	}
	orch.SetSourceText(text)
	return nil
}

func uniqueTokens(tokens []translate.SignNotation) []string {
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, token := range tokens {
		if _, ok := seen[token.FSW]; ok {
			continue
		}
		seen[token.FSW] = struct{}{}
		out = append(out, token.FSW)
	}
	return out
}

func drainNotices(ch <-chan translate.Notice) []translate.Notice {
	var out []translate.Notice
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

// cliLogger logs warnings to stderr, or everything from the configured
// level when verbose.
func cliLogger(cmd *cobra.Command, cfg *config.Config, verbose bool) (*slog.Logger, error) {
	if !verbose {
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError})), nil
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}
