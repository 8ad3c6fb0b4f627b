package views

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func finishedProgress(t *testing.T, err error) ProgressModel {
	t.Helper()
	m := NewProgressModel(StartScrapeMsg{Queries: "cafes", Location: "Haifa", Output: t.TempDir()})
	next, _ := m.Update(ScrapeFinishedMsg{DBPath: m.dbPath, Err: err})
	return next.(ProgressModel)
}

func TestCanceledRunRendersAsComplete(t *testing.T) {
	// The pipeline wraps cancellation before it reaches the view.
	m := finishedProgress(t, fmt.Errorf("scraping: %w", context.Canceled))

	out := m.View()
	require.Contains(t, out, "Complete!")
	require.NotContains(t, out, "Error:")
}

func TestFailedRunRendersError(t *testing.T) {
	m := finishedProgress(t, errors.New("browser crashed"))

	out := m.View()
	require.Contains(t, out, "browser crashed")
	require.NotContains(t, out, "Complete!")
}
