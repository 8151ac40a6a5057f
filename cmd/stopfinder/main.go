// Command stopfinder prints the nearest transit stop for each class in an
// iCalendar schedule.
//
//	stopfinder -start "300 Progress St, Blacksburg, Virginia, 24060, United States" -calendar fall.ics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/randytsao24/stopfinder/internal/config"
	"github.com/randytsao24/stopfinder/internal/route"
	"github.com/randytsao24/stopfinder/internal/service"
)

func main() {
	start := flag.String("start", "", `start address, "Street, City, State, ZIP, Country"`)
	calendar := flag.String("calendar", "", "path to an .ics schedule")
	format := flag.String("format", "json", "output format: json or csv")
	flag.Parse()

	if *start == "" || *calendar == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *format != "json" && *format != "csv" {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(2)
	}

	if err := run(*start, *calendar, *format, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "stopfinder:", err)
		os.Exit(1)
	}
}

func run(start, calendarPath, format string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// keep stdout clean for the result
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	deps := service.NewComponents(cfg, logger)
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := deps.Planner.SetStartLocation(ctx, start); err != nil {
		return err
	}

	data, err := os.ReadFile(calendarPath)
	if err != nil {
		return fmt.Errorf("reading calendar: %w", err)
	}

	result, err := deps.Planner.GetRoute(ctx, service.Upload{Filename: filepath.Base(calendarPath), Data: data})
	if err != nil {
		return err
	}

	if format == "csv" {
		return route.WriteCSV(out, result)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
