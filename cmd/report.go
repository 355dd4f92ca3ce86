package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/smazurov/lcrnode/internal/program"
	"github.com/smazurov/lcrnode/internal/sequencer"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// verdict renders the outcome label for a validation status.
func verdict(status sequencer.ValidationStatus) string {
	d := status.Decode()
	switch {
	case status.OK():
		return okStyle.Render("OK")
	case d.Advisory():
		return warnStyle.Render("WARN")
	default:
		return errorStyle.Render("FAIL")
	}
}

// printResult writes a one-block summary of an applied or checked program.
func printResult(w io.Writer, source string, res program.Result) {
	fmt.Fprintf(w, "%s %s", verdict(res.Status), source)
	if res.Name != "" {
		fmt.Fprintf(w, " (%s)", res.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %d\n", dimStyle.Render("entries:"), res.Entries)
	if res.Started {
		fmt.Fprintf(w, "  %s yes\n", dimStyle.Render("started:"))
	}
	for _, d := range res.Status.Diagnostics() {
		if d == sequencer.DiagnosticSuccess {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(d.String()+":"), d.Message())
	}
}

// printError reports a program that could not be checked or applied.
func printError(w io.Writer, source string, err error) {
	fmt.Fprintf(w, "%s %s\n  %v\n", errorStyle.Render("FAIL"), source, err)
}
