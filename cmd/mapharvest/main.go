package main

import (
	"fmt"
	"os"

	"mapharvest/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scrape":
			if err := runScrape(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("mapharvest " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := tui.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mapharvest - business listing collector

Usage:
  mapharvest                 Launch interactive TUI
  mapharvest scrape [flags]  Run a headless scrape
  mapharvest export [flags]  Export .db to CSV
  mapharvest version         Show version

Run 'mapharvest scrape --help' or 'mapharvest export --help' for flags.
`)
}
