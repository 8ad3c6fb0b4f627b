package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mapharvest/internal/engine/geo"
	"mapharvest/internal/engine/session"
	"mapharvest/internal/engine/storage"
	"mapharvest/internal/model"
	"mapharvest/internal/tui/styles"
)

// sharedState holds data shared between the scraper goroutine and TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu     sync.Mutex
	stats  *session.Stats
	cancel context.CancelFunc
}

// ProgressModel manages the scraping progress view.
type ProgressModel struct {
	params      model.SessionParams
	progress    progress.Model
	startTime   time.Time
	done        bool
	confirmQuit bool
	err         error
	dbPath      string
	logPath     string
	width       int
	height      int
	shared      *sharedState
}

// Messages
type progressTickMsg time.Time

// ScrapeFinishedMsg is emitted when the pipeline ends, whatever the outcome.
type ScrapeFinishedMsg struct {
	DBPath   string
	Queries  []string
	Location string
	Stored   int
	Err      error
}

func NewProgressModel(msg StartScrapeMsg) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	m := ProgressModel{
		progress:  p,
		startTime: time.Now(),
		shared:    &sharedState{},
	}

	// Parse params
	m.params.Queries = strings.Split(msg.Queries, ",")
	for i := range m.params.Queries {
		m.params.Queries[i] = strings.TrimSpace(m.params.Queries[i])
	}
	m.params.Location = msg.Location

	m.params.Limit, _ = strconv.Atoi(msg.Limit)
	if m.params.Limit <= 0 {
		m.params.Limit = 20
	}
	m.params.Workers, _ = strconv.Atoi(msg.Workers)
	if m.params.Workers <= 0 {
		m.params.Workers = 2
	}
	minMs, _ := strconv.Atoi(msg.MinDelay)
	if minMs <= 0 {
		minMs = 1500
	}
	maxMs, _ := strconv.Atoi(msg.MaxDelay)
	if maxMs < minMs {
		maxMs = minMs * 3
	}
	m.params.MinDelay = time.Duration(minMs) * time.Millisecond
	m.params.MaxDelay = time.Duration(maxMs) * time.Millisecond
	m.params.MaxRetries = 2
	m.params.Headless = true
	m.params.Lang = "en"
	m.params.Enrich = msg.Enrich

	// Setup output paths
	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("mapharvest_%s", ts)
	outDir := msg.Output
	os.MkdirAll(outDir, 0755)
	m.dbPath = filepath.Join(outDir, baseName+".db")
	m.logPath = filepath.Join(outDir, baseName+".log")
	m.params.DBPath = m.dbPath

	return m
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.startScraping(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) startScraping() tea.Cmd {
	shared := m.shared
	params := m.params
	dbPath := m.dbPath
	logPath := m.logPath

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())

		// Geocoding is best-effort; the query text still carries the location.
		var center *geo.Point
		if params.Location != "" {
			if pt, err := geo.LocateCenter(params.Location); err == nil {
				center = &pt
			}
		}

		// Open storage
		store, err := storage.NewStore(dbPath)
		if err != nil {
			cancel()
			return ScrapeFinishedMsg{DBPath: dbPath, Err: err}
		}

		// Setup logger
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			store.Close()
			cancel()
			return ScrapeFinishedMsg{DBPath: dbPath, Err: err}
		}
		logger := log.New(logFile, "", log.LstdFlags)

		stats := &session.Stats{SessionsTotal: len(params.Queries)}

		// Store into shared state (survives bubbletea value copies)
		shared.mu.Lock()
		shared.stats = stats
		shared.cancel = cancel
		shared.mu.Unlock()

		_, runErr := session.Run(ctx, params, store, logger, &session.RunOptions{
			SuppressStderr: true,
			Stats:          stats,
			Center:         center,
		})

		logFile.Close()
		store.Close()

		return ScrapeFinishedMsg{
			DBPath:   dbPath,
			Queries:  params.Queries,
			Location: params.Location,
			Stored:   int(stats.RecordsStored.Load()),
			Err:      runErr,
		}
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			if m.confirmQuit {
				// Second esc: cancel and go home
				if cancel := m.shared.getCancel(); cancel != nil {
					cancel()
				}
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			// First esc: show confirmation
			m.confirmQuit = true
			return m, nil
		case "enter":
			if m.done {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			if m.confirmQuit {
				m.confirmQuit = false
				return m, nil
			}
		}
		// Any other key cancels the confirmation
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case ScrapeFinishedMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	var pModel tea.Model
	pModel, cmd = m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) View() string {
	var b strings.Builder

	query := strings.Join(m.params.Queries, ", ")
	title := fmt.Sprintf("Scraping: %q", query)
	if m.params.Location != "" {
		title = fmt.Sprintf("Scraping: %q in %s", query, m.params.Location)
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n\n")

	// Stats
	statsContent := m.renderStats()
	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(statsContent)
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	// Progress bar
	stats := m.shared.getStats()
	var pct float64
	if stats != nil && stats.SessionsTotal > 0 {
		pct = float64(stats.SessionsDone.Load()) / float64(stats.SessionsTotal)
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	// Status
	if m.done {
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			total := int64(0)
			if stats != nil {
				total = stats.RecordsStored.Load()
			}
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Complete! %d businesses stored", total)))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render(fmt.Sprintf("Database: %s", m.dbPath)))
		}
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter done • esc back"))
	} else if m.confirmQuit {
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the scrape and go back"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	} else {
		b.WriteString(styles.StatusBar.Render("esc cancel • ctrl+c quit"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	var sessionsDone, sessionsTotal int64
	var cards, found, stored, failures, rateLimits int64

	stats := m.shared.getStats()
	if stats != nil {
		sessionsDone = stats.SessionsDone.Load()
		sessionsTotal = int64(stats.SessionsTotal)
		cards = stats.CardsProcessed.Load()
		found = stats.RecordsFound.Load()
		stored = stats.RecordsStored.Load()
		failures = stats.CardFailures.Load()
		rateLimits = stats.RateLimits.Load()
	}

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	row("Sessions:", fmt.Sprintf("%d/%d", sessionsDone, sessionsTotal))
	row("Cards:", fmt.Sprintf("%d", cards))
	row("Found:", fmt.Sprintf("%d", found))
	row("Stored:", fmt.Sprintf("%d", stored))

	failStyle := statVal
	if failures > 0 {
		failStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	sb.WriteString(statLabel.Render("Failures:"))
	sb.WriteString(failStyle.Render(fmt.Sprintf("%d", failures)))
	sb.WriteString("\n")

	if rateLimits > 0 {
		rlStyle := lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)
		sb.WriteString(statLabel.Render("Rate Lim:"))
		sb.WriteString(rlStyle.Render(fmt.Sprintf("%d", rateLimits)))
		sb.WriteString("\n")
	}

	row("Elapsed:", elapsed.String())

	// ETA
	if sessionsDone > 0 && sessionsTotal > 0 && !m.done {
		rate := float64(sessionsDone) / elapsed.Seconds()
		remaining := float64(sessionsTotal-sessionsDone) / rate
		eta := time.Duration(remaining * float64(time.Second)).Truncate(time.Second)
		row("ETA:", "~"+eta.String())
	}

	return sb.String()
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *sharedState) getStats() *session.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
