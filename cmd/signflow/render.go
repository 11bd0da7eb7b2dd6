package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"signflow/internal/translate"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSnapshot writes snap as JSON or as the rendered session summary.
func printSnapshot(cmd *cobra.Command, snap translate.Snapshot, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, snap)
	}
	out := cmd.OutOrStdout()
	renderSnapshot(out, snap, shouldColorize(out))
	return nil
}

// renderSnapshot prints the session summary followed by the notation table.
func renderSnapshot(out io.Writer, snap translate.Snapshot, colorize bool) {
	for _, line := range renderSectionHeader("Session", colorize) {
		fmt.Fprintln(out, line)
	}
	spoken := valueOr(snap.SpokenLanguage, "auto")
	if snap.SpokenLanguage == nil && snap.DetectedLanguage != nil {
		spoken = "auto (detected " + *snap.DetectedLanguage + ")"
	}
	fmt.Fprintln(out, renderStatusLine("Direction", statusInfo, string(snap.Direction), colorize))
	fmt.Fprintln(out, renderStatusLine("Input mode", statusInfo, string(snap.InputMode), colorize))
	fmt.Fprintln(out, renderStatusLine("Spoken language", statusInfo, spoken, colorize))
	fmt.Fprintln(out, renderStatusLine("Signed language", statusInfo, valueOr(snap.SignedLanguage, "-"), colorize))
	fmt.Fprintln(out, renderStatusLine("Source text", statusInfo, quoteOrDash(snap.SourceText), colorize))
	if snap.PivotText != nil {
		fmt.Fprintln(out, renderStatusLine("Pivot text", statusInfo, quoteOrDash(*snap.PivotText), colorize))
	}
	if snap.SuggestedText != nil {
		fmt.Fprintln(out, renderStatusLine("Suggestion", statusWarn, quoteOrDash(*snap.SuggestedText), colorize))
	}
	if snap.PoseReference != nil {
		fmt.Fprintln(out, renderStatusLine("Pose", statusOK, *snap.PoseReference, colorize))
	}
	if snap.VideoReference != nil {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, *snap.VideoReference, colorize))
	}

	if len(snap.SignNotation) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable([]string{"#", "FSW", "Description"}, notationRows(snap.SignNotation),
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
}

func notationRows(tokens []translate.SignNotation) [][]string {
	rows := make([][]string, 0, len(tokens))
	for i, token := range tokens {
		rows = append(rows, []string{strconv.Itoa(i + 1), token.FSW, valueOr(token.Description, "")})
	}
	return rows
}

func quoteOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return strconv.Quote(value)
}
