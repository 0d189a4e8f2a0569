package partition

import "errors"

// Partition errors.
var (
	ErrNoPartition     = errors.New("no partitions found")
	ErrUnknownZone     = errors.New("unknown zone")
	ErrInvalidDataset  = errors.New("invalid dataset name")
	ErrUnsupportedType = errors.New("unsupported value type")

	ErrUnreadablePartition = errors.New("unreadable partition file")
)
