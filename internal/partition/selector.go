package partition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
)

var partitionPattern = regexp.MustCompile(`^([a-z_]+)=(\d{8}T\d{6}Z)$`)

// Partition describes one partition directory of a dataset.
type Partition struct {
	Timestamp time.Time
	Name      string
	Dir       string
	DataFile  string
	// Complete is false when the data file is missing, e.g. after a crash.
	Complete bool
}

// Selector finds partitions of a dataset.
type Selector struct {
	log logger.Sink
}

// NewSelector creates a new selector.
func NewSelector(log logger.Sink) *Selector {
	return &Selector{log: log}
}

// ListPartitions returns the zone's partitions under datasetDir, oldest
// first. Entries that do not follow the naming convention are ignored.
func (s *Selector) ListPartitions(datasetDir string, zone Zone) ([]Partition, error) {
	entries, err := os.ReadDir(datasetDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", datasetDir, err)
	}

	var partitions []Partition

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		m := partitionPattern.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != zone.TimestampField() {
			continue
		}

		ts, err := time.Parse(TimestampLayout, m[2])
		if err != nil {
			continue
		}

		dir := filepath.Join(datasetDir, entry.Name())
		dataFile := filepath.Join(dir, DataFileName)

		info, statErr := os.Stat(dataFile)

		partitions = append(partitions, Partition{
			Timestamp: ts,
			Name:      entry.Name(),
			Dir:       dir,
			DataFile:  dataFile,
			Complete:  statErr == nil && info.Mode().IsRegular(),
		})
	}

	// Fixed-width timestamps sort chronologically by name.
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Name < partitions[j].Name
	})

	return partitions, nil
}

// SelectLatest returns the data file of the lexicographically greatest
// partition that has one. The file's content is not checked.
func (s *Selector) SelectLatest(datasetDir string, zone Zone) (string, error) {
	partitions, err := s.ListPartitions(datasetDir, zone)
	if err != nil {
		return "", err
	}

	for i := len(partitions) - 1; i >= 0; i-- {
		p := partitions[i]
		if p.Complete {
			return p.DataFile, nil
		}

		s.log.Warn("skipping partition without data file", "partition", p.Dir)
	}

	return "", fmt.Errorf("%w: %s", ErrNoPartition, datasetDir)
}
