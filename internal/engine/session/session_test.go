package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mapharvest/internal/engine/faults"
	"mapharvest/internal/engine/selectors"
	"mapharvest/internal/model"
)

// fakeResultsPage simulates a loaded result feed: cardCount cards, each card
// click swapping the detail panel to that card's business.
type fakeResultsPage struct {
	names       []string
	cardCount   int
	noResults   bool
	neverLoads  bool
	failPanelAt map[int]bool

	feedSel  string
	cardSel  string
	panelSel string

	lastClicked int
	clicks      []int
	navigated   []string
	scrolls     int
}

func newFakeResultsPage(names []string) *fakeResultsPage {
	table := selectors.Default()
	feed, _ := table.Lookup(selectors.FieldFeed)
	card, _ := table.Lookup(selectors.FieldCard)
	panel, _ := table.Lookup(selectors.FieldPanelTitle)
	return &fakeResultsPage{
		names:       names,
		cardCount:   len(names),
		failPanelAt: map[int]bool{},
		feedSel:     feed.Primary,
		cardSel:     card.Primary,
		panelSel:    panel.Primary,
		lastClicked: -1,
	}
}

func (f *fakeResultsPage) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeResultsPage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if sel == f.feedSel {
		if f.noResults || f.neverLoads {
			return errors.New("waiting for selector timed out")
		}
		return nil
	}
	if sel == f.panelSel && f.failPanelAt[f.lastClicked] {
		return errors.New("waiting for selector timed out")
	}
	return nil
}

func (f *fakeResultsPage) Exists(ctx context.Context, sel string) bool {
	if f.noResults {
		return strings.Contains(sel, "No results")
	}
	if f.neverLoads {
		return false
	}
	if sel == f.panelSel {
		return f.lastClicked >= 0 && !f.failPanelAt[f.lastClicked]
	}
	return false
}

func (f *fakeResultsPage) Count(ctx context.Context, sel string) (int, error) {
	if sel == f.cardSel {
		return f.cardCount, nil
	}
	return 0, nil
}

func (f *fakeResultsPage) Text(ctx context.Context, sel string) (string, error) {
	if sel == f.panelSel && f.lastClicked >= 0 && f.lastClicked < len(f.names) {
		return f.names[f.lastClicked], nil
	}
	return "", nil
}

func (f *fakeResultsPage) Attr(ctx context.Context, sel, name string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeResultsPage) TextAll(ctx context.Context, sel string) ([]string, error) {
	return nil, nil
}

func (f *fakeResultsPage) AttrAll(ctx context.Context, sel, name string) ([]string, error) {
	return nil, nil
}

func (f *fakeResultsPage) ClickNth(ctx context.Context, sel string, index int) error {
	f.lastClicked = index
	f.clicks = append(f.clicks, index)
	return nil
}

func (f *fakeResultsPage) ScrollBottom(ctx context.Context, containerSel string) (float64, error) {
	f.scrolls++
	return 1000, nil
}

func (f *fakeResultsPage) URL(ctx context.Context) (string, error) {
	return "https://www.google.com/maps/place/x", nil
}

func (f *fakeResultsPage) Close() error { return nil }

func testOrchestrator(page *fakeResultsPage, params model.SessionParams) *Orchestrator {
	logger := log.New(io.Discard, "", 0)
	return New(page, selectors.Default(), params, logger, Options{
		ResultsTimeout: 10 * time.Millisecond,
		PanelTimeout:   10 * time.Millisecond,
		ScrollSettle:   time.Millisecond,
		MaxScrollIters: 3,
	})
}

func testParams(limit int) model.SessionParams {
	return model.SessionParams{
		Location: "Tel Aviv, Israel",
		Limit:    limit,
		Lang:     "en",
	}
}

func cardNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Business %02d", i)
	}
	return names
}

func TestRunHonorsLimitInDOMOrder(t *testing.T) {
	page := newFakeResultsPage(cardNames(12))
	orch := testOrchestrator(page, testParams(5))

	results, err := orch.Run(context.Background(), "restaurants", nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Equal(t, []int{0, 1, 2, 3, 4}, page.clicks)

	for i, res := range results {
		require.True(t, res.OK(), "card %d", i)
		require.Equal(t, i, res.CardIndex)
		require.Equal(t, fmt.Sprintf("Business %02d", i), res.Record.Name)
	}
	require.Equal(t, PhaseDone, orch.Phase())
}

func TestRunLimitAboveCardCount(t *testing.T) {
	page := newFakeResultsPage(cardNames(3))
	orch := testOrchestrator(page, testParams(10))

	results, err := orch.Run(context.Background(), "cafes", nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestCardFailureIsIsolated(t *testing.T) {
	page := newFakeResultsPage(cardNames(5))
	page.failPanelAt[2] = true
	orch := testOrchestrator(page, testParams(5))

	results, err := orch.Run(context.Background(), "bars", nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.True(t, results[0].OK())
	require.True(t, results[1].OK())

	require.False(t, results[2].OK())
	require.NotNil(t, results[2].Failure)
	require.Equal(t, faults.Timeout, results[2].Failure.Category)

	// The session moved on past the bad card.
	require.True(t, results[3].OK())
	require.True(t, results[4].OK())
	require.Equal(t, "Business 04", results[4].Record.Name)
}

func TestNoResultsIsEmptyNotError(t *testing.T) {
	page := newFakeResultsPage(nil)
	page.noResults = true
	orch := testOrchestrator(page, testParams(5))

	results, err := orch.Run(context.Background(), "submarine dealers", nil)
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
	require.Equal(t, PhaseNoResults, orch.Phase())
}

func TestFeedNeverLoadingIsAnError(t *testing.T) {
	page := newFakeResultsPage(nil)
	page.neverLoads = true
	orch := testOrchestrator(page, testParams(5))

	_, err := orch.Run(context.Background(), "restaurants", nil)
	require.Error(t, err)
}

func TestScrollStopsAtFixedPoint(t *testing.T) {
	page := newFakeResultsPage(cardNames(2))
	orch := testOrchestrator(page, testParams(2))

	_, err := orch.Run(context.Background(), "restaurants", nil)
	require.NoError(t, err)
	// Extent is constant, so the scroll loop stops after noticing no growth.
	require.Equal(t, 2, page.scrolls)
}

func TestBuildSearchURL(t *testing.T) {
	u := buildSearchURL("restaurants in Tel Aviv, Israel", nil, "en")
	require.Equal(t, "https://www.google.com/maps/search/restaurants%20in%20Tel%20Aviv%2C%20Israel?hl=en", u)

	u = buildSearchURL("cafes", &Viewport{Lat: 32.08, Lng: 34.78}, "")
	require.Contains(t, u, "/@32.08")
	require.Contains(t, u, ",14z")
	require.NotContains(t, u, "?hl=")
}

func TestEscalateDelayCaps(t *testing.T) {
	page := newFakeResultsPage(nil)
	orch := testOrchestrator(page, testParams(1))
	for i := 0; i < 10; i++ {
		orch.EscalateDelay()
	}
	require.Equal(t, 8, orch.delayFactor)
}

func TestViewportInSearchNavigation(t *testing.T) {
	page := newFakeResultsPage(cardNames(1))
	orch := testOrchestrator(page, testParams(1))

	_, err := orch.Run(context.Background(), "restaurants", &Viewport{Lat: 32.0809, Lng: 34.7806})
	require.NoError(t, err)
	require.Len(t, page.navigated, 1)
	require.Contains(t, page.navigated[0], "restaurants%20in%20Tel%20Aviv")
	require.Contains(t, page.navigated[0], "@32.08")
}
