// Package partition stores row batches as timestamped, append-only parquet
// partitions and finds the latest one of a dataset.
//
// Layout:
//
//	<data_dir>/raw/<dataset>/ingested_at=YYYYMMDDTHHMMSSZ/part-000.parquet
//	<data_dir>/processed/<dataset>/processed_at=YYYYMMDDTHHMMSSZ/part-000.parquet
package partition

import (
	"fmt"
	"path/filepath"
	"time"
)

// Zone is a storage tier of a dataset.
type Zone string

// Zones.
const (
	ZoneRaw       Zone = "raw"
	ZoneProcessed Zone = "processed"
)

const (
	// DataFileName is the single data file inside every partition.
	DataFileName = "part-000.parquet"

	// TimestampLayout formats partition timestamps at second precision, UTC.
	TimestampLayout = "20060102T150405Z"
)

// ParseZone converts a zone name.
func ParseZone(s string) (Zone, error) {
	switch Zone(s) {
	case ZoneRaw, ZoneProcessed:
		return Zone(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, s)
	}
}

// TimestampField names the partition key of the zone.
func (z Zone) TimestampField() string {
	if z == ZoneProcessed {
		return "processed_at"
	}

	return "ingested_at"
}

// PartitionName returns "<field>=<timestamp>" for t.
func (z Zone) PartitionName(t time.Time) string {
	return z.TimestampField() + "=" + t.UTC().Format(TimestampLayout)
}

// DatasetDir returns <baseDir>/<zone>/<dataset>.
func DatasetDir(baseDir string, zone Zone, dataset string) string {
	return filepath.Join(baseDir, string(zone), dataset)
}
