// Package output prints styled terminal messages for the magpie CLI.
//
// Messages go to stdout except errors and warnings, which go to stderr so
// that piping a summary stays clean.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(14)

	verboseMode bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose output.
func SetVerbose(v bool) {
	verboseMode = v
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	return verboseMode
}

// Success prints a completed-operation message.
//
// Example:
//
//	output.Success("Exported 12 files")
func Success(msg string) {
	fmt.Fprintln(stdout, successStyle.Render("✅ "+msg))
}

// Error prints a failure to stderr.
func Error(msg string) {
	fmt.Fprintln(stderr, errorStyle.Render("❌ "+msg))
}

// Warn prints a recoverable problem to stderr.
func Warn(msg string) {
	fmt.Fprintln(stderr, warnStyle.Render("⚠️  "+msg))
}

// Info prints a status update.
func Info(msg string) {
	fmt.Fprintln(stdout, infoStyle.Render("ℹ️  "+msg))
}

// Step prints an indented sub-item in gray.
//
// Example:
//
//	output.Step("exports/demo/code/root.txt")
func Step(msg string) {
	fmt.Fprintln(stdout, stepStyle.Render("   "+msg))
}

// Verbose prints msg only when verbose mode is enabled.
func Verbose(msg string) {
	if verboseMode {
		fmt.Fprintln(stdout, stepStyle.Render("🔍 "+msg))
	}
}

// Field prints an aligned "label value" line, used for run summaries.
func Field(label string, value any) {
	fmt.Fprintf(stdout, "   %s %v\n", labelStyle.Render(label), value)
}
