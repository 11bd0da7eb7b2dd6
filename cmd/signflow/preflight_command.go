package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signflow/internal/detect"
	"signflow/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var withDetector bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, history and remote services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if withDetector {
				results = append(results, preflight.CheckDetector(cmd.Context(), detect.Options{
					Engine:              cfg.Detector.Engine,
					Languages:           cfg.Detector.Languages,
					MinRelativeDistance: cfg.Detector.MinRelativeDistance,
				}))
			}
			if asJSON {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				renderPreflight(cmd, results)
			}
			if preflight.Failed(results) {
				return fmt.Errorf("preflight failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDetector, "detector", false, "Also build the language detector (slow)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderPreflight(cmd *cobra.Command, results []preflight.Result) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, r := range results {
		kind := statusOK
		switch {
		case !r.Passed && r.Optional:
			kind = statusWarn
		case !r.Passed:
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
}
