package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mapharvest/internal/tui/styles"
)

// Field indices — fieldEnrich is a virtual toggle (not a textinput)
const (
	fieldQueries = iota
	fieldLocation
	fieldLimit
	fieldWorkers
	fieldMinDelay
	fieldMaxDelay
	fieldEnrich
	fieldOutput
	fieldCount
)

type SearchModel struct {
	inputs  []textinput.Model
	focused int
	enrich  bool
	err     string
}

func NewSearchModel() SearchModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldQueries] = newInput("restaurants, cafes", "", 60)
	inputs[fieldLocation] = newInput("Tel Aviv, Israel", "", 40)
	inputs[fieldLimit] = newInput("20", "", 8)
	inputs[fieldWorkers] = newInput("2", "", 5)
	inputs[fieldMinDelay] = newInput("1500", "", 8)
	inputs[fieldMaxDelay] = newInput("4500", "", 8)
	inputs[fieldEnrich] = textinput.New() // placeholder, never used
	inputs[fieldOutput] = newInput("./projects", "", 50)

	m := SearchModel{
		inputs:  inputs,
		focused: fieldQueries,
	}
	m.inputs[fieldQueries].Focus()
	return m
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 100
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func (m SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()

		switch key {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }

		case "up":
			m.err = ""
			return m, m.focusPrev()

		case "down", "tab":
			m.err = ""
			return m, m.focusNext()

		case "shift+tab":
			m.err = ""
			return m, m.focusPrev()

		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}

		case "left", "right", " ":
			if m.focused == fieldEnrich {
				m.enrich = !m.enrich
				return m, nil
			}
		}
	}

	// Update focused textinput (skip the enrich toggle)
	var cmd tea.Cmd
	if m.focused != fieldEnrich && m.focused >= 0 && m.focused < fieldCount {
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}

	return m, cmd
}

func (m *SearchModel) focusNext() tea.Cmd {
	if m.focused != fieldEnrich {
		m.inputs[m.focused].Blur()
	}
	m.focused++
	if m.focused >= fieldCount {
		m.focused = fieldQueries
	}
	if m.focused == fieldEnrich {
		return nil
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SearchModel) focusPrev() tea.Cmd {
	if m.focused != fieldEnrich {
		m.inputs[m.focused].Blur()
	}
	m.focused--
	if m.focused < 0 {
		m.focused = fieldOutput
	}
	if m.focused == fieldEnrich {
		return nil
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SearchModel) submit() tea.Cmd {
	queries := strings.TrimSpace(m.inputs[fieldQueries].Value())
	if queries == "" {
		m.err = "Queries are required"
		return nil
	}
	output := strings.TrimSpace(m.inputs[fieldOutput].Value())
	if output == "" {
		m.err = "Output directory is required"
		return nil
	}

	// Validate numeric fields
	for _, f := range []struct {
		idx  int
		name string
	}{
		{fieldLimit, "Limit"},
		{fieldWorkers, "Workers"},
		{fieldMinDelay, "Min delay"},
		{fieldMaxDelay, "Max delay"},
	} {
		v := strings.TrimSpace(m.inputs[f.idx].Value())
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			m.err = f.name + " must be a non-negative number"
			return nil
		}
	}

	enrich := m.enrich
	return func() tea.Msg {
		return StartScrapeMsg{
			Queries:  queries,
			Location: strings.TrimSpace(m.inputs[fieldLocation].Value()),
			Limit:    strings.TrimSpace(m.inputs[fieldLimit].Value()),
			Workers:  strings.TrimSpace(m.inputs[fieldWorkers].Value()),
			MinDelay: strings.TrimSpace(m.inputs[fieldMinDelay].Value()),
			MaxDelay: strings.TrimSpace(m.inputs[fieldMaxDelay].Value()),
			Enrich:   enrich,
			Output:   output,
		}
	}
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Scrape") + "\n\n")

	b.WriteString(m.renderField("Queries:", fieldQueries))
	b.WriteString(m.renderField("Location:", fieldLocation))
	b.WriteString(m.renderField("Limit:", fieldLimit))
	if m.focused == fieldLimit {
		hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("  max result cards per query")
		b.WriteString(hint + "\n")
	}
	b.WriteString(m.renderField("Workers:", fieldWorkers))
	b.WriteString(m.renderField("Min delay:", fieldMinDelay))
	b.WriteString(m.renderField("Max delay:", fieldMaxDelay))
	if m.focused == fieldMinDelay || m.focused == fieldMaxDelay {
		hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("  ms between cards | higher=slower, less detection")
		b.WriteString(hint + "\n")
	}
	b.WriteString(m.renderEnrich())
	b.WriteString(m.renderField("Output:", fieldOutput))

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter start • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SearchModel) renderEnrich() string {
	label := styles.Label.Render("Enrich:")

	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	var onStr, offStr string
	if m.enrich {
		onStr = active.Render("< On >")
		offStr = inactive.Render("Off")
	} else {
		onStr = inactive.Render("On")
		offStr = active.Render("< Off >")
	}

	line := fmt.Sprintf("%s %s   %s", label, offStr, onStr)

	if m.focused == fieldEnrich {
		indicator := lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ←→")
		line += indicator
	}

	return line + "\n"
}

func (m SearchModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// StartScrapeMsg carries the raw form values; the progress view parses them.
type StartScrapeMsg struct {
	Queries  string
	Location string
	Limit    string
	Workers  string
	MinDelay string
	MaxDelay string
	Enrich   bool
	Output   string
}
