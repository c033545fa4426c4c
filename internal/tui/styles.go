package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Violet accent for the Vesper branding
const vesperViolet = "#8B5CF6"

// VESPER ASCII art (filled block style)
var vesperArt = []string{
	"    ██╗   ██╗███████╗███████╗██████╗ ███████╗██████╗ ",
	"    ██║   ██║██╔════╝██╔════╝██╔══██╗██╔════╝██╔══██╗",
	"    ██║   ██║█████╗  ███████╗██████╔╝█████╗  ██████╔╝",
	"    ╚██╗ ██╔╝██╔══╝  ╚════██║██╔═══╝ ██╔══╝  ██╔══██╗",
	"     ╚████╔╝ ███████╗███████║██║     ███████╗██║  ██║",
	"      ╚═══╝  ╚══════╝╚══════╝╚═╝     ╚══════╝╚═╝  ╚═╝",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	Query     lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style // White color for tips (more visible)
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style // Horizontal line separator
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(vesperViolet)),
		Query:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")), // White for visibility
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Gray separator line
	}
}

// RenderBanner returns the VESPER ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range vesperArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Type a question and press Enter to search your documents",
	"  • /list shows registered documents, /help lists all commands",
	"  • Tab moves between input and results, PgUp/PgDn scroll",
	"  • Press Esc to quit, Ctrl+C to cancel",
}

// RenderWelcomeTips returns styled welcome tips (white for visibility).
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
