// Package styles holds the shared lipgloss theme. The palette leans
// green/amber: harvest colors, and the warning tier reads naturally as
// "slow down" during a scrape.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Primary   = lipgloss.Color("#40A02B") // sprout green
	Secondary = lipgloss.Color("#DF8E1D") // wheat amber
	Success   = lipgloss.Color("#4CAF50")
	Warning   = lipgloss.Color("#FE640B")
	Error     = lipgloss.Color("#D20F39")
	Muted     = lipgloss.Color("#7F849C")
	Text      = lipgloss.Color("#CDD6F4")
)

// Headings and labels
var (
	Title = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Underline(true).
		MarginBottom(1)

	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Width(12)
)

// List items
var (
	ActiveItem = lipgloss.NewStyle().
			Foreground(Text).
			Background(lipgloss.Color("#313244")).
			Bold(true)

	InactiveItem = lipgloss.NewStyle().
			Foreground(Muted)
)

// Chrome
var (
	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			Faint(true).
			MarginTop(1)

	Border = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(Primary).
		Padding(1, 3)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)
