package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const historyLimit = 10

// RunSummary is one finished scrape as remembered across launches: enough
// to find the database again and to tell runs apart on the history screen.
type RunSummary struct {
	DBPath     string    `json:"db_path"`
	Queries    []string  `json:"queries,omitempty"`
	Location   string    `json:"location,omitempty"`
	Records    int       `json:"records"`
	FinishedAt time.Time `json:"finished_at"`
}

func historyPath() string {
	cfg, _ := os.UserConfigDir()
	return filepath.Join(cfg, "mapharvest", "history.json")
}

// LoadHistory returns past runs, newest first. A missing or unreadable
// history file is an empty history.
func LoadHistory() []RunSummary {
	data, err := os.ReadFile(historyPath())
	if err != nil {
		return nil
	}
	var runs []RunSummary
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil
	}
	return runs
}

// RecordRun prepends a finished run to the history, replacing any earlier
// entry for the same database and capping the list. Failures to persist are
// ignored: history is a convenience, not data.
func RecordRun(run RunSummary) {
	if abs, err := filepath.Abs(run.DBPath); err == nil {
		run.DBPath = abs
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	runs := []RunSummary{run}
	for _, r := range LoadHistory() {
		if r.DBPath == run.DBPath {
			continue
		}
		runs = append(runs, r)
		if len(runs) == historyLimit {
			break
		}
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return
	}
	path := historyPath()
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, data, 0644)
}
