package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// ToastLevel selects the toast color.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

var toastBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// RenderToast renders a one-notification box: an icon and title line
// followed by the message.
func RenderToast(level ToastLevel, title, message string) string {
	var (
		color lipgloss.TerminalColor
		icon  string
	)
	switch level {
	case ToastSuccess:
		color, icon = ColorPass, IconPass
	case ToastWarning:
		color, icon = ColorWarn, IconWarn
	case ToastError:
		color, icon = ColorFail, IconFail
	default:
		color, icon = ColorAccent, IconInfo
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(color).Render(icon + " " + title)
	body := head
	if message != "" {
		body += "\n" + WrapText(message, TerminalWidth()-4)
	}
	return toastBox.BorderForeground(color).Render(body)
}
