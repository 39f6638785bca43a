package tui

import "github.com/charmbracelet/lipgloss"

var (
	styleHeader     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	stylePanelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	styleBest       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7BD88F"))
	styleMuted      = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	styleFooter     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	styleWarn       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4BF75"))

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)
