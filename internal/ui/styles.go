// Package ui provides terminal styling for kb output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/kanbeads/internal/types"
)

// Ayu theme color palette
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	ColorReview = lipgloss.AdaptiveColor{Light: "#a37acc", Dark: "#d2a6ff"}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	ReviewStyle = lipgloss.NewStyle().Foreground(ColorReview)

	// CategoryStyle for section headers
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Status icons
const (
	IconPass    = "✓"
	IconWarn    = "⚠"
	IconFail    = "✗"
	IconInfo    = "ℹ"
	IconBlocked = "●"
	IconOpen    = "○"
)

const (
	TreeChild = "⎿ "
	TreeLast  = "└─ "

	SeparatorLight = "──────────────────────────────────────────"
)

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderCategory renders a section header in uppercase.
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// StatusStyle returns the style of a canonical status.
func StatusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return PassStyle
	case types.StatusInReview:
		return ReviewStyle
	case types.StatusInProgress:
		return AccentStyle
	default:
		return MutedStyle
	}
}

// RenderStatus renders a status label such as "in_progress".
func RenderStatus(s types.Status) string {
	return StatusStyle(s).Render(string(s))
}

// RenderPriority colors high and critical priorities.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityCritical:
		return FailStyle.Bold(true).Render(p.String())
	case types.PriorityHigh:
		return WarnStyle.Render(p.String())
	default:
		return MutedStyle.Render(p.String())
	}
}
