package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Intro     lipgloss.Style
	Error     lipgloss.Style
	Input     lipgloss.Style
	Pending   lipgloss.Style
}

type MessageColors struct {
	Border string
	Accent string
	Error  string
}

func DefaultStyles() *Style {
	lightModeColors := MessageColors{
		Border: "#CCCCCC",
		Accent: "#FFB6C1", // Light pink
		Error:  "#D7263D",
	}

	darkModeColors := MessageColors{
		Border: "#444444",
		Accent: "#DD7090", // Desaturated pink for dark mode
		Error:  "#FF5F6D",
	}

	border := lipgloss.AdaptiveColor{Light: lightModeColors.Border, Dark: darkModeColors.Border}
	accent := lipgloss.AdaptiveColor{Light: lightModeColors.Accent, Dark: darkModeColors.Accent}
	errorColor := lipgloss.AdaptiveColor{Light: lightModeColors.Error, Dark: darkModeColors.Error}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
		User: lipgloss.NewStyle().
			Foreground(accent).
			Padding(0, 1),
		Assistant: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(border).
			Padding(0, 1),
		Intro: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(errorColor).
			Foreground(errorColor).
			Padding(0, 1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(accent),
		Pending: lipgloss.NewStyle().Faint(true).Padding(0, 1),
	}
}
