package storage

import "context"

// Store durably appends encoded readings. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, timestamp float64, record []byte) error
}

// Record is a persisted row of the infrared_data table.
type Record struct {
	ID          int64
	ReadingTime float64
	Data        []byte
}
