// Package ui holds the styled one-line messages the command line prints
// around tables: errors with hints, warnings, successes and lint results.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + Hint("Hint: "+suggestion) + "\n"
	}
	return out
}

// Success prints a green success message.
func Success(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("Warning: "+msg))
}

// Bold renders text in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Hint renders text in dim italic.
func Hint(s string) string {
	return hintStyle.Render(s)
}

// ValidationOK prints a green check for a valid item.
func ValidationOK(w io.Writer, item, detail string) {
	fmt.Fprintf(w, "  %s %s: %s\n", successStyle.Render("OK "), Bold(item), detail)
}

// ValidationErr prints a red error for an invalid item.
func ValidationErr(w io.Writer, item, message, suggestion string) {
	fmt.Fprintf(w, "  %s %s: %s\n", errorStyle.Render("ERR"), Bold(item), message)
	if suggestion != "" {
		fmt.Fprintf(w, "      %s\n", Hint("Hint: "+suggestion))
	}
}
