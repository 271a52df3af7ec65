package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	defaultWidth     = 80
	maxReadableWidth = 100
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor honors NO_COLOR, CLICOLOR and CLICOLOR_FORCE, and otherwise
// colors only terminals.
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return IsTerminal()
}

// ApplyColorProfile switches lipgloss to plain output when color is off.
func ApplyColorProfile() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// TerminalWidth returns the stdout width capped for readability.
func TerminalWidth() int {
	width := defaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	if width > maxReadableWidth {
		width = maxReadableWidth
	}
	return width
}
