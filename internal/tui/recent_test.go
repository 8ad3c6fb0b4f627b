package tui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordRunRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	RecordRun(RunSummary{
		DBPath:   "/tmp/harvest.db",
		Queries:  []string{"cafes", "bars"},
		Location: "Tel Aviv, Israel",
		Records:  42,
	})

	runs := LoadHistory()
	require.Len(t, runs, 1)
	require.Equal(t, "/tmp/harvest.db", runs[0].DBPath)
	require.Equal(t, []string{"cafes", "bars"}, runs[0].Queries)
	require.Equal(t, "Tel Aviv, Israel", runs[0].Location)
	require.Equal(t, 42, runs[0].Records)
	require.False(t, runs[0].FinishedAt.IsZero())
}

func TestRecordRunReplacesSameDatabase(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	RecordRun(RunSummary{DBPath: "/tmp/a.db", Records: 3})
	RecordRun(RunSummary{DBPath: "/tmp/b.db", Records: 5})
	RecordRun(RunSummary{DBPath: "/tmp/a.db", Records: 9})

	runs := LoadHistory()
	require.Len(t, runs, 2)
	require.Equal(t, "/tmp/a.db", runs[0].DBPath)
	require.Equal(t, 9, runs[0].Records)
	require.Equal(t, "/tmp/b.db", runs[1].DBPath)
}

func TestHistoryIsCappedNewestFirst(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for i := 0; i < historyLimit+4; i++ {
		RecordRun(RunSummary{DBPath: fmt.Sprintf("/tmp/run%d.db", i)})
	}

	runs := LoadHistory()
	require.Len(t, runs, historyLimit)
	require.Equal(t, fmt.Sprintf("/tmp/run%d.db", historyLimit+3), runs[0].DBPath)
}

func TestLoadHistoryMissingFileIsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.Empty(t, LoadHistory())
}
