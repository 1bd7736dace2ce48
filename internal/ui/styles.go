package ui

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles of one console. Styles are built from the
// console's renderer so colour detection follows its writer, not stdout.
type styles struct {
	header  lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
	key     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header: r.NewStyle().
			Foreground(lipgloss.Color("#FFF")).
			Background(lipgloss.Color("#7D56F4")). // Brand Color
			Bold(true).
			Padding(0, 1),
		step: r.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true),
		success: r.NewStyle().
			Foreground(lipgloss.Color("46")). // Green
			Bold(true),
		failure: r.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true),
		warning: r.NewStyle().
			Foreground(lipgloss.Color("214")),
		muted: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		key: r.NewStyle().
			Foreground(lipgloss.Color("212")),
	}
}
