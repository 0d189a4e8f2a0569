package partition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

// Writer persists row batches as new partitions under a base directory.
//
// Timestamps have one-second resolution: two writes of the same dataset and
// zone within one second land in the same partition and the later one wins.
type Writer struct {
	log     logger.Sink
	now     func() time.Time
	baseDir string
}

// NewWriter creates a writer that stamps partitions with the wall clock.
func NewWriter(baseDir string, log logger.Sink) *Writer {
	return NewWriterWithClock(baseDir, log, time.Now)
}

// NewWriterWithClock creates a writer with an injected clock.
func NewWriterWithClock(baseDir string, log logger.Sink, now func() time.Time) *Writer {
	return &Writer{
		log:     log,
		now:     now,
		baseDir: baseDir,
	}
}

// BaseDir returns the data directory the writer targets.
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// WriteRaw writes normalized rows as a new raw partition and returns the
// data file path.
func (w *Writer) WriteRaw(dataset string, rows []models.Row) (string, error) {
	records := make([]rawRecord, 0, len(rows))

	for i, row := range rows {
		rec, err := toRawRecord(row)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}

		records = append(records, rec)
	}

	return writePartition(w, ZoneRaw, dataset, len(records), func(path string) error {
		return writeRawFile(path, records)
	})
}

// WriteProcessed writes processed rows as a new processed partition and
// returns the data file path.
func (w *Writer) WriteProcessed(dataset string, rows []models.ProcessedRow) (string, error) {
	return writePartition(w, ZoneProcessed, dataset, len(rows), func(path string) error {
		return writeProcessedFile(path, rows)
	})
}

// writePartition writes records to a hidden temp file inside the partition
// directory and renames it to the data file, so readers never see a
// half-written part-000.parquet.
func writePartition(w *Writer, zone Zone, dataset string, rows int, write func(path string) error) (string, error) {
	if err := validateDataset(dataset); err != nil {
		return "", err
	}

	dir := filepath.Join(DatasetDir(w.baseDir, zone, dataset), zone.PartitionName(w.now()))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create partition directory: %w", err)
	}

	target := filepath.Join(dir, DataFileName)
	tmp := filepath.Join(dir, "."+DataFileName+".tmp")

	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)

		return "", fmt.Errorf("failed to write partition file: %w", err)
	}

	if _, err := os.Stat(target); err == nil {
		w.log.Warn("partition already exists, overwriting",
			"zone", string(zone), "dataset", dataset, "path", target)
	} else if !errors.Is(err, fs.ErrNotExist) {
		_ = os.Remove(tmp)

		return "", fmt.Errorf("failed to stat partition file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)

		return "", fmt.Errorf("failed to commit partition file: %w", err)
	}

	w.log.Debug("partition written",
		"zone", string(zone), "dataset", dataset, "rows", rows, "path", target)

	return target, nil
}

func validateDataset(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}

	return nil
}
