package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Header    lipgloss.Style
	Logo      lipgloss.Style
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Danger    lipgloss.Style
	Success   lipgloss.Style
	Selected  lipgloss.Style
	Added     lipgloss.Style
	Deleted   lipgloss.Style
	Renamed   lipgloss.Style
	LinkText  lipgloss.Style
	StatusBar lipgloss.Style
	Prompt    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		Danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color("238")).
			Foreground(lipgloss.Color("255")),
		Added: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		Deleted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
		Renamed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("179")),
		LinkText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Underline(true),
		StatusBar: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("250")),
		Prompt: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}
