package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mapharvest/internal/engine/geo"
	"mapharvest/internal/engine/session"
	"mapharvest/internal/engine/storage"
	"mapharvest/internal/model"
	"mapharvest/internal/tui"
)

func runScrape(args []string) error {
	var params model.SessionParams
	var queriesStr, outputDir, selectorPath string
	var minDelayMs, maxDelayMs int

	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	fs.StringVar(&outputDir, "output", "", "Output directory for project files (required)")
	fs.StringVar(&queriesStr, "queries", "", "Comma-separated business types (required)")
	fs.StringVar(&params.Location, "location", "", "Search location, e.g. \"Tel Aviv, Israel\"")
	fs.IntVar(&params.Limit, "limit", 20, "Max result cards per query")
	fs.IntVar(&params.Workers, "workers", 2, "Concurrent browser sessions")
	fs.IntVar(&minDelayMs, "min-delay", 1500, "Min inter-card delay (ms)")
	fs.IntVar(&maxDelayMs, "max-delay", 4500, "Max inter-card delay (ms)")
	fs.IntVar(&params.MaxRetries, "max-retries", 2, "Retry ceiling for retryable failures")
	fs.BoolVar(&params.Headless, "headless", true, "Run the browser headless")
	fs.StringVar(&params.ProxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL")
	fs.StringVar(&params.Lang, "lang", "en", "Page language")
	fs.BoolVar(&params.Enrich, "enrich", false, "Fetch websites for emails and social links")
	fs.Float64Var(&params.RadiusKm, "radius", 0, "Drop records farther than this from the location (km, 0=off)")
	fs.StringVar(&selectorPath, "selectors", "", "JSON file overriding the selector table")
	fs.BoolVar(&params.Debug, "debug", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mapharvest scrape [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mapharvest scrape -queries restaurants -location \"Tel Aviv, Israel\" -output ./projects\n")
		fmt.Fprintf(os.Stderr, "  mapharvest scrape -queries \"cafes,bars\" -location Haifa -limit 40 -enrich -output ./projects\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Validation
	if queriesStr == "" {
		return fmt.Errorf("-queries is required")
	}
	if outputDir == "" {
		return fmt.Errorf("-output is required")
	}

	params.Queries = strings.Split(queriesStr, ",")
	for i := range params.Queries {
		params.Queries[i] = strings.TrimSpace(params.Queries[i])
	}
	params.MinDelay = time.Duration(minDelayMs) * time.Millisecond
	params.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	// Generate timestamped filenames
	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("mapharvest_%s", ts)
	params.DBPath = filepath.Join(outputDir, baseName+".db")
	logPath := filepath.Join(outputDir, baseName+".log")

	// Setup log file
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Session start: queries=%v location=%q limit=%d workers=%d delay=%s-%s enrich=%t ===",
		params.Queries, params.Location, params.Limit, params.Workers,
		params.MinDelay, params.MaxDelay, params.Enrich)

	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	startTime := time.Now()

	// Geocode the location so the search map is centered on it. A failed
	// geocode is not fatal: the query text still carries the location.
	var center *geo.Point
	if params.Location != "" {
		if pt, err := geo.LocateCenter(params.Location); err == nil {
			center = &pt
			fmt.Fprintf(os.Stderr, "Center: %.4f, %.4f (%s)\n", pt.Lat, pt.Lng, params.Location)
		} else {
			logger.Printf("GEOCODE_FAIL location=%q err=%v", params.Location, err)
			fmt.Fprintf(os.Stderr, "Geocoding failed (%v), searching by query text only\n", err)
		}
	}
	if params.RadiusKm > 0 && center == nil {
		return fmt.Errorf("-radius requires a geocodable -location")
	}

	// Open storage
	store, err := storage.NewStore(params.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "Scraping: %d queries, limit %d cards each (workers=%d)\n",
		len(params.Queries), params.Limit, params.Workers)
	logger.Printf("Scraping: %d queries, limit=%d, workers=%d", len(params.Queries), params.Limit, params.Workers)

	stats, err := session.Run(ctx, params, store, logger, &session.RunOptions{
		Center:       center,
		SelectorPath: selectorPath,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scraping: %w", err)
	}

	duration := time.Since(startTime).Truncate(time.Second)
	total, _ := store.Count()

	logger.Printf("Done: found=%d stored=%d card_failures=%d rate_limits=%d total_in_db=%d",
		stats.RecordsFound.Load(), stats.RecordsStored.Load(),
		stats.CardFailures.Load(), stats.RateLimits.Load(), total)

	// Print final summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Harvest Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Queries:    %s\n", strings.Join(params.Queries, ", "))
	if params.Location != "" {
		fmt.Fprintf(os.Stderr, "  Location:   %s\n", params.Location)
	}
	fmt.Fprintf(os.Stderr, "  Cards:      %d\n", stats.CardsProcessed.Load())
	fmt.Fprintf(os.Stderr, "  Found:      %d\n", stats.RecordsFound.Load())
	fmt.Fprintf(os.Stderr, "  Stored:     %d (unique)\n", total)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", stats.CardFailures.Load())
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", params.DBPath)
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	tui.RecordRun(tui.RunSummary{
		DBPath:   params.DBPath,
		Queries:  params.Queries,
		Location: params.Location,
		Records:  total,
	})

	return nil
}
