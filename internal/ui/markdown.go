package ui

import (
	"charm.land/glamour/v2"
	"github.com/muesli/termenv"
)

// RenderMarkdown renders a card description for the terminal. It returns
// the input unchanged when color is off or rendering fails.
func RenderMarkdown(markdown string) string {
	if markdown == "" || !ShouldUseColor() {
		return markdown
	}
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
