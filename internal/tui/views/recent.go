package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mapharvest/internal/tui/styles"
)

// RecentEntry is one past scrape as shown on the history screen.
type RecentEntry struct {
	Path       string
	Queries    []string
	Location   string
	Records    int
	FinishedAt time.Time
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
}

func NewRecentModel(entries []RecentEntry) RecentModel {
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Past Scrapes"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(styles.InactiveItem.Italic(true).Render("Nothing harvested yet — run a scrape first"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	for i, entry := range m.entries {
		b.WriteString(m.renderEntry(entry, i == m.cursor))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("export with: mapharvest export -db <path> • esc back"))

	return styles.Border.Render(b.String())
}

// renderEntry prints one run as a two-line block: what was scraped, then
// where it landed.
func (m RecentModel) renderEntry(entry RecentEntry, selected bool) string {
	marker := "  "
	headStyle := styles.InactiveItem
	if selected {
		marker = "> "
		headStyle = styles.ActiveItem
	}

	head := scrapeTitle(entry)
	if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
		head += "  (db missing)"
		headStyle = styles.ErrorText
	}

	records := lipgloss.NewStyle().Foreground(styles.Secondary).
		Render(fmt.Sprintf("%d businesses", entry.Records))
	detail := lipgloss.NewStyle().Foreground(styles.Muted).
		Render(fmt.Sprintf("  %s · %s · %s", records, filepath.Base(entry.Path), harvestAge(entry.FinishedAt)))

	return fmt.Sprintf("%s%s\n%s\n", marker, headStyle.Render(head), detail)
}

// scrapeTitle labels a run by what it searched for, falling back to the
// database name for history written before metadata existed.
func scrapeTitle(entry RecentEntry) string {
	if len(entry.Queries) == 0 {
		return filepath.Base(entry.Path)
	}
	title := strings.Join(entry.Queries, ", ")
	if entry.Location != "" {
		title += " — " + entry.Location
	}
	return title
}

func harvestAge(t time.Time) string {
	if t.IsZero() {
		return "unknown age"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "moments ago"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
