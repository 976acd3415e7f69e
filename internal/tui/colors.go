package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles used across command output. Colors degrade with the detected
// terminal profile; a dumb terminal gets plain text.
var (
	TrunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	BranchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	ForestStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	PathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	MergedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// ColorEnabled reports whether the terminal supports color output
func ColorEnabled() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

// Colorize applies style to s when the terminal supports it
func Colorize(style lipgloss.Style, s string) string {
	if !ColorEnabled() {
		return s
	}
	return style.Render(s)
}
