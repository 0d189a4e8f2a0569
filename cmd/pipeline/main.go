// Package main provides the pipeline command that ingests and transforms every
// enabled dataset of a configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bashoori/sustainable-energy-data-platform/internal/config"
	"github.com/bashoori/sustainable-energy-data-platform/internal/fetch"
	"github.com/bashoori/sustainable-energy-data-platform/internal/ingest"
	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/internal/partition"
	"github.com/bashoori/sustainable-energy-data-platform/internal/transform"
)

const (
	exitFailure   = 2
	defaultConfig = "configs/pipeline.yaml"
)

// datasetRun is the outcome of one dataset.
type datasetRun struct {
	name      string
	ingest    *ingest.Result
	transform *transform.Result
	err       error
}

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default "+defaultConfig+")")
	dataDir := flag.String("data-dir", "", "Data lake root directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	only := flag.String("dataset", "", "Run a single dataset from the config")
	skipTransform := flag.Bool("skip-transform", false, "Only ingest, do not transform")

	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitFailure)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = defaultConfig
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config %s: %v\n", configPath, err)
		os.Exit(exitFailure)
	}

	if *dataDir != "" {
		cfg.Pipeline.DataDir = *dataDir
	}

	if *logLevel != "" {
		cfg.Pipeline.Logging.Level = *logLevel
	}

	log := logger.NewLogger(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.Format)

	datasets := cfg.GetEnabledSources()

	if *only != "" {
		ds, getErr := cfg.GetDataset(*only)
		if getErr != nil {
			log.Error("Unknown dataset", "dataset", *only, "error", getErr)
			os.Exit(exitFailure)
		}

		datasets = []config.DatasetConfig{ds}
	}

	if len(datasets) == 0 {
		log.Warn("No enabled datasets in configuration", "config", configPath)

		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting pipeline", "datasets", len(datasets), "data_dir", cfg.Pipeline.DataDir)

	startTime := time.Now()

	runs := make([]datasetRun, 0, len(datasets))

	for i, ds := range datasets {
		if ctx.Err() != nil {
			log.Warn("Pipeline interrupted", "remaining", len(datasets)-i)

			break
		}

		log.Info(fmt.Sprintf("📦 Dataset %d/%d: %s", i+1, len(datasets), ds.Name))

		run := datasetRun{name: ds.Name}

		// Per-dataset components; every log line carries the dataset name
		dlog := log.With("dataset", ds.Name)
		writer := partition.NewWriter(cfg.Pipeline.DataDir, dlog)
		ingester := ingest.NewIngester(fetch.NewFetcher(&cfg.Pipeline.Retry, dlog), writer, dlog)
		transformer := transform.NewTransformer(writer, partition.NewSelector(dlog), dlog)

		run.ingest, run.err = ingester.IngestDataset(ctx, ds)
		if run.err != nil {
			dlog.Error("Ingestion failed", "url", ds.URL, "error", run.err)
		} else if !*skipTransform {
			run.transform, run.err = transformer.TransformDataset(ds.Name)
			if run.err != nil {
				dlog.Error("Transformation failed", "error", run.err)
			}
		}

		runs = append(runs, run)
	}

	failed := printSummary(runs, time.Since(startTime))

	if failed > 0 || len(runs) < len(datasets) {
		stop()
		os.Exit(exitFailure)
	}
}

func printSummary(runs []datasetRun, elapsed time.Duration) int {
	failed := 0

	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Pipeline Summary Report\n")
	fmt.Println("------------------------------------------------")

	for _, run := range runs {
		switch {
		case run.err != nil:
			failed++

			fmt.Printf("❌ %s: %v\n", run.name, run.err)
		case run.transform != nil:
			fmt.Printf("✅ %s: %d raw rows, %d processed rows (%d duplicates dropped)\n",
				run.name, run.ingest.Rows, run.transform.RowsOut, run.transform.Duplicates)
			fmt.Printf("   %s\n", run.transform.OutputPath)
		default:
			fmt.Printf("✅ %s: %d raw rows\n", run.name, run.ingest.Rows)
			fmt.Printf("   %s\n", run.ingest.Path)
		}
	}

	fmt.Println("------------------------------------------------")
	fmt.Printf("Datasets: %d succeeded, %d failed\n", len(runs)-failed, failed)
	fmt.Printf("Total Duration: %v\n", elapsed)

	return failed
}
