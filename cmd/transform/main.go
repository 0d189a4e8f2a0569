// Package main provides the transformation command that turns the latest raw
// partition of a dataset into a processed partition.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bashoori/sustainable-energy-data-platform/internal/config"
	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/internal/partition"
	"github.com/bashoori/sustainable-energy-data-platform/internal/transform"
)

const exitFailure = 2

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	dataset := flag.String("dataset", "", "Dataset name (required)")
	dataDir := flag.String("data-dir", "", "Data lake root directory (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

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

	if *logLevel != "" {
		cfg.Pipeline.Logging.Level = *logLevel
	}

	log := logger.NewLogger(cfg.Pipeline.Logging.Level, cfg.Pipeline.Logging.Format)

	if *dataset == "" {
		log.Error("Please provide a dataset name with -dataset flag")
		printUsage()
		os.Exit(exitFailure)
	}

	writer := partition.NewWriter(cfg.Pipeline.DataDir, log)
	transformer := transform.NewTransformer(writer, partition.NewSelector(log), log)

	result, err := transformer.TransformDataset(*dataset)
	if err != nil {
		log.Error("Transformation failed", "dataset", *dataset, "data_dir", cfg.Pipeline.DataDir, "error", err)
		os.Exit(exitFailure)
	}

	printSummary(result)
}

func printSummary(r *transform.Result) {
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Transformation Summary: %s\n", r.Dataset)
	fmt.Println("------------------------------------------------")
	fmt.Printf("Input:        %s\n", r.InputPath)
	fmt.Printf("Output:       %s\n", r.OutputPath)
	fmt.Printf("Rows In:      %d\n", r.RowsIn)
	fmt.Printf("Rows Out:     %d\n", r.RowsOut)
	fmt.Printf("Duplicates:   %d\n", r.Duplicates)
	fmt.Printf("Null Dates:   %d\n", r.NullDates)
	fmt.Printf("Null Values:  %d\n", r.NullValues)
	fmt.Printf("Processed At: %s\n", r.ProcessedAt)
	fmt.Printf("Duration:     %v\n", r.Duration)
	fmt.Println("------------------------------------------------")
}

func printUsage() {
	fmt.Println("Usage: ./bin/transform -dataset <name> [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/transform -dataset energy_metrics -data-dir data")
}
