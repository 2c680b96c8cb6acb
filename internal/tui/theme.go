package tui

import "github.com/charmbracelet/lipgloss"

var (
	Rose     = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
	Green    = lipgloss.Color("#a6e3a1")
	Sapphire = lipgloss.Color("#74c7ec")
	Lavender = lipgloss.Color("#b4befe")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext  = lipgloss.Color("#a6adc8")
	Surface  = lipgloss.Color("#45475a")

	frameStyle = lipgloss.NewStyle().Padding(1, 2)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Surface).
			Foreground(Text).
			Padding(0, 1)

	questionPanel = panelStyle.BorderForeground(Lavender)
	pricingPanel  = panelStyle.BorderForeground(Peach)

	titleStyle   = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(Subtext)
	hotStyle     = lipgloss.NewStyle().Foreground(Peach).Bold(true)
	liveStyle    = lipgloss.NewStyle().Foreground(Green)
	errorStyle   = lipgloss.NewStyle().Foreground(Rose)
	scoreStyle   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	feedbackItem = lipgloss.NewStyle().Foreground(Text).PaddingLeft(2)
)
