package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mapharvest/internal/engine/storage"
	"mapharvest/internal/model"
)

// csvHeader is the documented export column order.
var csvHeader = []string{
	"name", "address", "city", "phone", "website", "hasWebsite",
	"businessType", "rating", "reviewCount", "hours",
	"latitude", "longitude", "imageUrls", "googleMapsUrl", "lastUpdated",
}

func runExport(args []string) error {
	var dbPath, outputPath, format string

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mapharvest export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mapharvest export -db ./projects/mapharvest_20260828.db\n")
		fmt.Fprintf(os.Stderr, "  mapharvest export -db data.db -output results.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}

	if format != "csv" {
		return fmt.Errorf("unsupported format: %s (only csv supported)", format)
	}

	// Default output path
	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+".csv")
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	records, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no businesses found in database")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	// encoding/csv writes UTF-8 as-is, which keeps Hebrew names intact.
	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write(csvHeader)
	for _, r := range records {
		w.Write(csvRow(r))
	}

	fmt.Fprintf(os.Stderr, "Exported %d businesses to %s\n", len(records), outputPath)
	return nil
}

func csvRow(r model.Record) []string {
	return []string{
		r.Name,
		r.Address,
		r.City,
		r.Phone,
		r.Website,
		strconv.FormatBool(r.HasWebsite),
		r.BusinessType,
		formatFloat(r.Rating),
		formatInt(r.ReviewCount),
		formatHours(r),
		formatFloat(r.Lat),
		formatFloat(r.Lng),
		strings.Join(r.Images, "|"),
		r.SourceURL,
		r.LastUpdated.UTC().Format(time.RFC3339),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatHours(r model.Record) string {
	if r.Open24Hours {
		return "Open 24 hours"
	}
	if len(r.Hours) == 0 {
		return ""
	}
	b, err := json.Marshal(r.Hours)
	if err != nil {
		return ""
	}
	return string(b)
}
