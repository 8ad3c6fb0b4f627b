// Package session drives one search session: submit a query, exhaust the
// lazily loaded result list, and process the first N cards into records with
// per-card failure isolation.
package session

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"mapharvest/internal/browser"
	"mapharvest/internal/engine/extract"
	"mapharvest/internal/engine/faults"
	"mapharvest/internal/engine/selectors"
	"mapharvest/internal/model"
)

const searchBaseURL = "https://www.google.com/maps/search/"

// Phase tracks where a session is. Searching and ResultsLoading may end in
// NoResults, which is a valid empty outcome, not an error.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseResultsLoading
	PhaseResultsReady
	PhaseProcessing
	PhaseNoResults
	PhaseDone
)

// Viewport centers the search map when the location was geocoded.
type Viewport struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// Options tune one orchestrator. Zero values fall back to defaults.
type Options struct {
	ResultsTimeout time.Duration
	PanelTimeout   time.Duration
	ScrollSettle   time.Duration
	MaxScrollIters int

	// OnResult fires after every processed card.
	OnResult func(Result)
	// OnFault fires for every classified card failure, before any retry.
	OnFault func(faults.Decision)
}

func (o *Options) defaults() {
	if o.ResultsTimeout <= 0 {
		o.ResultsTimeout = 20 * time.Second
	}
	if o.PanelTimeout <= 0 {
		o.PanelTimeout = 10 * time.Second
	}
	if o.ScrollSettle <= 0 {
		o.ScrollSettle = 1200 * time.Millisecond
	}
	if o.MaxScrollIters <= 0 {
		o.MaxScrollIters = 12
	}
}

// Orchestrator owns one session. It is not safe for concurrent use; run one
// per worker.
type Orchestrator struct {
	page   browser.Page
	table  *selectors.Table
	params model.SessionParams
	logger *log.Logger
	opts   Options
	phase  Phase

	mu          sync.Mutex
	delayFactor int // doubles on escalation
}

func New(page browser.Page, table *selectors.Table, params model.SessionParams, logger *log.Logger, opts Options) *Orchestrator {
	opts.defaults()
	return &Orchestrator{
		page:        page,
		table:       table,
		params:      params,
		logger:      logger,
		opts:        opts,
		phase:       PhaseIdle,
		delayFactor: 1,
	}
}

// Phase returns the current session phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// EscalateDelay doubles the inter-card delay window, capped at 8x.
func (o *Orchestrator) EscalateDelay() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.delayFactor < 8 {
		o.delayFactor *= 2
	}
}

func (o *Orchestrator) interCardDelay() time.Duration {
	o.mu.Lock()
	f := o.delayFactor
	o.mu.Unlock()
	return o.params.RandomDelay() * time.Duration(f)
}

// Run executes one session for a business type. It returns one Result per
// attempted card, in DOM order. A nil error with an empty slice means the
// search legitimately had no results. Errors are returned only for
// session-bootstrap failures and blocking challenges; per-card failures are
// isolated into failure-tagged Results.
func (o *Orchestrator) Run(ctx context.Context, businessType string, view *Viewport) ([]Result, error) {
	o.phase = PhaseSearching
	query := o.params.ComposeQuery(businessType)
	if err := o.page.Navigate(ctx, buildSearchURL(query, view, o.params.Lang)); err != nil {
		return nil, fmt.Errorf("submitting search %q: %w", query, err)
	}

	o.phase = PhaseResultsLoading
	ok, err := o.waitForResults(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.phase = PhaseNoResults
		o.logger.Printf("NO_RESULTS query=%q", query)
		return []Result{}, nil
	}

	o.phase = PhaseResultsReady
	o.scrollToExhaustion(ctx)

	cardSel, total := o.countCards(ctx)
	limit := o.params.Limit
	if limit <= 0 || limit > total {
		limit = total
	}
	o.logger.Printf("RESULTS query=%q cards=%d limit=%d", query, total, limit)

	o.phase = PhaseProcessing
	results := make([]Result, 0, limit)
	for i := 0; i < limit; i++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		if i > 0 {
			time.Sleep(o.interCardDelay())
		}

		res := o.processCard(ctx, cardSel, i)
		results = append(results, res)
		if o.opts.OnResult != nil {
			o.opts.OnResult(res)
		}
		if res.Failure != nil && res.Failure.Category == faults.Captcha {
			// Blocking challenge: no automated recovery, surface now.
			o.phase = PhaseDone
			return results, res.Failure
		}
	}

	o.phase = PhaseDone
	return results, nil
}

// waitForResults waits for the feed. It returns (false, nil) when the page
// shows an explicit no-results indicator, and an error when the feed simply
// never appeared.
func (o *Orchestrator) waitForResults(ctx context.Context) (bool, error) {
	feed, _ := o.table.Lookup(selectors.FieldFeed)
	waitErr := o.page.WaitVisible(ctx, feed.Primary, o.opts.ResultsTimeout)
	if waitErr == nil {
		return true, nil
	}
	for _, sel := range feed.Fallbacks {
		if o.page.Exists(ctx, sel) {
			return true, nil
		}
	}

	noRes, _ := o.table.Lookup(selectors.FieldNoResults)
	for _, sel := range noRes.All() {
		if o.page.Exists(ctx, sel) {
			return false, nil
		}
	}
	return false, fmt.Errorf("results never loaded: %w", waitErr)
}

// scrollToExhaustion repeatedly scrolls the feed to its bottom until the
// scroll extent stops growing. The iteration bound exists because content
// alone cannot prove termination on sites with synthetic endless feeds.
func (o *Orchestrator) scrollToExhaustion(ctx context.Context) {
	feed, _ := o.table.Lookup(selectors.FieldFeed)

	var prev float64 = -1
	for i := 0; i < o.opts.MaxScrollIters; i++ {
		extent, err := o.page.ScrollBottom(ctx, feed.Primary)
		if err != nil {
			return
		}
		time.Sleep(o.opts.ScrollSettle)
		if extent == prev {
			return
		}
		prev = extent
	}
}

// countCards picks the first card selector that matches anything and returns
// it with its match count.
func (o *Orchestrator) countCards(ctx context.Context) (string, int) {
	card, _ := o.table.Lookup(selectors.FieldCard)
	for _, sel := range card.All() {
		if n, err := o.page.Count(ctx, sel); err == nil && n > 0 {
			return sel, n
		}
	}
	return card.Primary, 0
}

// processCard opens one card's detail panel and assembles a record. Failures
// are classified, optionally retried once when the policy allows it, and
// always reduced to a Result — a bad card never aborts the session.
func (o *Orchestrator) processCard(ctx context.Context, cardSel string, index int) Result {
	panel, _ := o.table.Lookup(selectors.FieldPanelTitle)

	var lastDecision faults.Decision
	for attempt := 0; ; attempt++ {
		rec, err := o.attemptCard(ctx, cardSel, panel.Primary, index)
		if err == nil {
			return Succeeded(index, rec)
		}

		lastDecision = faults.Decide(err, attempt, o.params.MaxRetries)
		o.logger.Printf("CARD_FAULT index=%d attempt=%d category=%s retryable=%t err=%v",
			index, attempt, lastDecision.Category, lastDecision.Retryable, err)
		if o.opts.OnFault != nil {
			o.opts.OnFault(lastDecision)
		}

		if lastDecision.Action == faults.ActionEscalateDelay {
			o.EscalateDelay()
		}
		if !lastDecision.Retryable || attempt >= o.params.MaxRetries {
			return Failed(index, lastDecision)
		}
		time.Sleep(o.interCardDelay())
	}
}

func (o *Orchestrator) attemptCard(ctx context.Context, cardSel, panelSel string, index int) (*model.Record, error) {
	if err := o.page.ClickNth(ctx, cardSel, index); err != nil {
		return nil, fmt.Errorf("opening card %d: %w", index, err)
	}
	if err := o.page.WaitVisible(ctx, panelSel, o.opts.PanelTimeout); err != nil {
		return nil, fmt.Errorf("detail panel for card %d: %w", index, err)
	}
	return extract.Assemble(ctx, o.page, o.table)
}

func buildSearchURL(query string, view *Viewport, lang string) string {
	u := searchBaseURL + url.PathEscape(query)
	if view != nil {
		zoom := view.Zoom
		if zoom == 0 {
			zoom = 14
		}
		u += fmt.Sprintf("/@%f,%f,%dz", view.Lat, view.Lng, zoom)
	}
	if lang != "" {
		u += "?hl=" + url.QueryEscape(lang)
	}
	return u
}
