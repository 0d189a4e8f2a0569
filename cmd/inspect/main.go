// Package main provides the inspect command that previews the latest partition of a dataset.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bashoori/sustainable-energy-data-platform/internal/config"
	"github.com/bashoori/sustainable-energy-data-platform/internal/formatter"
	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
	"github.com/bashoori/sustainable-energy-data-platform/internal/partition"
	"github.com/bashoori/sustainable-energy-data-platform/pkg/utils"
)

const exitFailure = 2

var errUnknownFormat = errors.New("format must be 'table' or 'csv'")

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	dataset := flag.String("dataset", "", "Dataset name (required)")
	zoneName := flag.String("zone", string(partition.ZoneProcessed), "Zone to read: raw or processed")
	dataDir := flag.String("data-dir", "", "Data lake root directory (overrides config)")
	limit := flag.Int("limit", 20, "Maximum rows to show (0 for all)")
	format := flag.String("format", "table", "Output format: table or csv")
	maxWidth := flag.Int("max-width", 48, "Truncate table cells to this many characters (0 for no limit)")
	list := flag.Bool("list", false, "List partitions instead of previewing the latest")

	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitFailure)
	}

	cfg, err := config.LoadOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(exitFailure)
	}

	if *dataDir != "" {
		cfg.Pipeline.DataDir = *dataDir
	}

	log := logger.NewLogger(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.Format)

	if *dataset == "" {
		log.Error("Please provide a dataset name with -dataset flag")
		flag.PrintDefaults()
		os.Exit(exitFailure)
	}

	zone, err := partition.ParseZone(*zoneName)
	if err != nil {
		log.Error("Invalid zone", "zone", *zoneName, "error", err)
		os.Exit(exitFailure)
	}

	selector := partition.NewSelector(log)
	datasetDir := partition.DatasetDir(cfg.Pipeline.DataDir, zone, *dataset)

	if *list {
		err = listPartitions(os.Stdout, selector, datasetDir, zone)
	} else {
		err = preview(os.Stdout, selector, datasetDir, zone, previewOptions{limit: *limit, format: *format, maxWidth: *maxWidth})
	}

	if err != nil {
		log.Error("Inspect failed", "dataset", *dataset, "zone", zone, "error", err)
		os.Exit(exitFailure)
	}
}

func listPartitions(w io.Writer, selector *partition.Selector, datasetDir string, zone partition.Zone) error {
	parts, err := selector.ListPartitions(datasetDir, zone)
	if err != nil {
		return err
	}

	cells := make([][]string, len(parts))

	for i, p := range parts {
		complete := "yes"
		if !p.Complete {
			complete = "no"
		}

		cells[i] = []string{p.Name, complete, p.DataFile}
	}

	_, err = fmt.Fprintln(w, formatter.Table([]string{"partition", "complete", "path"}, cells))

	return err
}

// previewOptions control how many rows are shown and how.
type previewOptions struct {
	format   string
	limit    int
	maxWidth int
}

func preview(w io.Writer, selector *partition.Selector, datasetDir string, zone partition.Zone, opts previewOptions) error {
	if opts.format != "table" && opts.format != "csv" {
		return fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}

	path, err := selector.SelectLatest(datasetDir, zone)
	if err != nil {
		return err
	}

	if zone == partition.ZoneRaw {
		rows, readErr := partition.ReadRaw(path)
		if readErr != nil {
			return readErr
		}

		rows = head(rows, opts.limit)

		if opts.format == "csv" {
			return formatter.WriteRawCSV(w, rows)
		}

		return printTable(w, path, models.RequiredColumns(), formatter.RowCells(rows, models.RequiredColumns()), opts.maxWidth)
	}

	rows, err := partition.ReadProcessed(path)
	if err != nil {
		return err
	}

	rows = head(rows, opts.limit)

	if opts.format == "csv" {
		return formatter.WriteProcessedCSV(w, rows)
	}

	return printTable(w, path, models.ProcessedColumns(), formatter.ProcessedCells(rows), opts.maxWidth)
}

func printTable(w io.Writer, path string, header []string, cells [][]string, maxWidth int) error {
	truncate := utils.NewStringHelper().TruncateString

	for _, row := range cells {
		for i := range row {
			row[i] = truncate(row[i], maxWidth)
		}
	}

	_, err := fmt.Fprintf(w, "📂 %s\n\n%s\n\n%d rows shown\n", path, formatter.Table(header, cells), len(cells))

	return err
}

func head[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}

	return rows
}
