package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"mapharvest/internal/browser"
	"mapharvest/internal/engine/enrich"
	"mapharvest/internal/engine/faults"
	"mapharvest/internal/engine/geo"
	"mapharvest/internal/engine/selectors"
	"mapharvest/internal/engine/storage"
	"mapharvest/internal/model"
)

// Stop a run after this many sessions in a row end in detection faults.
const persistentDetectionLimit = 3

type Stats struct {
	SessionsTotal  int
	SessionsDone   atomic.Int64
	CardsProcessed atomic.Int64
	RecordsFound   atomic.Int64
	RecordsStored  atomic.Int64
	CardFailures   atomic.Int64
	RateLimits     atomic.Int64
}

// RunOptions provides optional callbacks for the scraping pipeline.
type RunOptions struct {
	// OnRecords is called with each session's successful records before
	// storage. Can be used by the TUI to show finds in real time.
	OnRecords func([]model.Record)
	// SuppressStderr disables the built-in stderr progress reporter.
	SuppressStderr bool
	// Stats allows passing an external Stats object for live progress
	// tracking. If nil, Run() creates its own.
	Stats *Stats
	// Center recenters searches and drives the radius filter when set.
	Center *geo.Point
	// SelectorPath overrides the built-in selector table from a JSON file.
	SelectorPath string
}

// Run executes the pipeline: one session per query, each on its own browser
// context. Cards that fail stay in the per-session result sequence; only
// bootstrap failures and captchas escalate here.
func Run(ctx context.Context, params model.SessionParams, store *storage.Store, logger *log.Logger, opts *RunOptions) (*Stats, error) {
	if opts == nil {
		opts = &RunOptions{}
	}

	var stats *Stats
	if opts.Stats != nil {
		stats = opts.Stats
		stats.SessionsTotal = len(params.Queries)
	} else {
		stats = &Stats{SessionsTotal: len(params.Queries)}
	}

	table, err := selectors.Load(opts.SelectorPath)
	if err != nil {
		return stats, err
	}

	var view *Viewport
	if opts.Center != nil {
		view = &Viewport{Lat: opts.Center.Lat, Lng: opts.Center.Lng}
	}

	identities := browser.NewIdentityPool()

	jobs := make(chan string, len(params.Queries))
	for _, q := range params.Queries {
		jobs <- q
	}
	close(jobs)

	var wg sync.WaitGroup
	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	startTime := time.Now()
	done := make(chan struct{})
	go reportProgress(stats, logger, startTime, opts.SuppressStderr, done)

	// consecutiveDetections tracks back-to-back blocked sessions so a dead
	// run stops instead of burning every identity in the pool.
	var consecutiveDetections atomic.Int64
	var blocked atomic.Bool

	for job := range jobs {
		if ctx.Err() != nil {
			break
		}

		if blocked.Load() || consecutiveDetections.Load() >= persistentDetectionLimit {
			logger.Printf("ABORT: persistent detection, skipping remaining queries")
			if !opts.SuppressStderr {
				fmt.Fprintf(os.Stderr, "\n[!] Persistent blocking detected — stopping. Try again later or slow down.\n")
			}
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			defer func() { <-sem }()
			runSession(ctx, query, view, table, params, identities, store, stats, logger, opts,
				&consecutiveDetections, &blocked)
		}(job)
	}

	wg.Wait()
	close(done)

	// Only return after every in-flight session has finished: the caller
	// closes the store right after Run, and workers write to it.
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if merged, err := store.MergeByPhone(); err == nil && merged > 0 {
		logger.Printf("DEDUP merged=%d by phone", merged)
	}

	if params.Enrich {
		enrichStored(ctx, params, store, stats, logger)
	}

	if !opts.SuppressStderr {
		elapsed := time.Since(startTime).Truncate(time.Second)
		fmt.Fprintf(os.Stderr, "\r[%d/%d sessions] %d found | %d stored | %d card failures | %s\n",
			stats.SessionsDone.Load(), stats.SessionsTotal,
			stats.RecordsFound.Load(), stats.RecordsStored.Load(),
			stats.CardFailures.Load(), elapsed)
	}

	return stats, nil
}

func runSession(
	ctx context.Context,
	query string,
	view *Viewport,
	table *selectors.Table,
	params model.SessionParams,
	identities *browser.IdentityPool,
	store *storage.Store,
	stats *Stats,
	logger *log.Logger,
	opts *RunOptions,
	consecutiveDetections *atomic.Int64,
	blocked *atomic.Bool,
) {
	defer stats.SessionsDone.Add(1)

	maxAttempts := params.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results, err := attemptSession(ctx, query, view, table, params, identities, stats, logger)

		detected := false
		for _, res := range results {
			stats.CardsProcessed.Add(1)
			if res.OK() {
				continue
			}
			stats.CardFailures.Add(1)
			switch res.Failure.Category {
			case faults.RateLimit, faults.BotDetection:
				stats.RateLimits.Add(1)
				detected = true
			}
		}

		var records []model.Record
		for _, res := range results {
			if res.OK() {
				records = append(records, *res.Record)
			}
		}
		stats.RecordsFound.Add(int64(len(records)))

		if opts.Center != nil && params.RadiusKm > 0 {
			records = geo.FilterByRadius(records, *opts.Center, params.RadiusKm)
		}
		if opts.OnRecords != nil && len(records) > 0 {
			opts.OnRecords(records)
		}
		if len(records) > 0 {
			stored, storeErr := store.InsertBatch(records)
			stats.RecordsStored.Add(int64(stored))
			if storeErr != nil {
				logger.Printf("ERROR storing query=%q stored=%d/%d err=%v", query, stored, len(records), storeErr)
			}
		}

		if err == nil {
			if detected {
				consecutiveDetections.Add(1)
				identities.Rotate()
			} else {
				consecutiveDetections.Store(0)
			}
			return
		}

		decision := faults.Decide(err, attempt, params.MaxRetries)
		logger.Printf("SESSION_FAULT query=%q attempt=%d category=%s retryable=%t err=%v",
			query, attempt, decision.Category, decision.Retryable, err)

		switch decision.Category {
		case faults.Captcha:
			// Session-blocking: requires human intervention, stop the run.
			blocked.Store(true)
			return
		case faults.RateLimit, faults.BotDetection:
			consecutiveDetections.Add(1)
			identities.Rotate()
		case faults.NetworkError:
			identities.Rotate()
		}

		if !decision.Retryable || ctx.Err() != nil {
			return
		}
		time.Sleep(params.RandomDelay())
	}
}

// attemptSession opens a fresh browser context with the current identity and
// runs one orchestrated session in it.
func attemptSession(
	ctx context.Context,
	query string,
	view *Viewport,
	table *selectors.Table,
	params model.SessionParams,
	identities *browser.IdentityPool,
	stats *Stats,
	logger *log.Logger,
) ([]Result, error) {
	chrome := browser.NewChrome(browser.Options{
		Headless: params.Headless,
		ProxyURL: params.ProxyURL,
		Identity: identities.Current(),
	})
	defer chrome.Close()

	page, err := chrome.NewPage()
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	orch := New(page, table, params, logger, Options{})
	return orch.Run(ctx, query, view)
}

func enrichStored(ctx context.Context, params model.SessionParams, store *storage.Store, stats *Stats, logger *log.Logger) {
	pending, err := store.NeedingEnrichment(0)
	if err != nil {
		logger.Printf("ERROR enrichment query err=%v", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	logger.Printf("ENRICH start targets=%d", len(pending))

	enricher := enrich.NewEnricher(params.ProxyURL, logger)
	found := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return
		}
		contacts, err := enricher.Lookup(ctx, rec)
		if err != nil || contacts.Empty() {
			continue
		}
		if err := store.SetContacts(rec.ID, contacts.Email, contacts.WhatsApp, contacts.Social); err == nil {
			found++
		}
	}
	logger.Printf("ENRICH done enriched=%d/%d", found, len(pending))
}

func reportProgress(stats *Stats, logger *log.Logger, startTime time.Time, suppressStderr bool, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	logTicker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	defer logTicker.Stop()
	for {
		select {
		case <-ticker.C:
			if suppressStderr {
				continue
			}
			elapsed := time.Since(startTime).Truncate(time.Second)
			rl := stats.RateLimits.Load()
			if rl > 0 {
				fmt.Fprintf(os.Stderr, "\r[%d/%d sessions] %d cards | %d found | %d stored | %d rate-limited | %s",
					stats.SessionsDone.Load(), stats.SessionsTotal,
					stats.CardsProcessed.Load(), stats.RecordsFound.Load(),
					stats.RecordsStored.Load(), rl, elapsed)
			} else {
				fmt.Fprintf(os.Stderr, "\r[%d/%d sessions] %d cards | %d found | %d stored | %s",
					stats.SessionsDone.Load(), stats.SessionsTotal,
					stats.CardsProcessed.Load(), stats.RecordsFound.Load(),
					stats.RecordsStored.Load(), elapsed)
			}
		case <-logTicker.C:
			elapsed := time.Since(startTime).Truncate(time.Second)
			logger.Printf("PROGRESS sessions=%d/%d cards=%d found=%d stored=%d card_failures=%d rate_limits=%d elapsed=%s",
				stats.SessionsDone.Load(), stats.SessionsTotal,
				stats.CardsProcessed.Load(), stats.RecordsFound.Load(),
				stats.RecordsStored.Load(), stats.CardFailures.Load(),
				stats.RateLimits.Load(), elapsed)
		case <-done:
			return
		}
	}
}
