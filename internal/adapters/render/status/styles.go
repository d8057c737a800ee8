package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	user    lipgloss.Style
	key     lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	role    lipgloss.Style
	flagOn  lipgloss.Style
	flagOff lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		user:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		role:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		flagOn:  lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		flagOff: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}
