package tui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle styles the table title line.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// SpinnerStyle colors the footer spinner.
	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"ok":        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"installed": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"created":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"linked":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"rewritten": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"valid":     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"detecting":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"resolving":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"downloading": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"extracting":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"installing":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"verifying":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"running":     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"skipped":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"warned":   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"missing":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"expiring": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"failed":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"expired": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Nothing to do yet / nothing changed
		"pending":   lipgloss.NewStyle().Faint(true),
		"unchanged": lipgloss.NewStyle().Faint(true),
		"exists":    lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
