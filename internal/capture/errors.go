package capture

import "codeberg.org/mutker/ircapture/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrMissingDep      = errors.ErrInvalidArgument

	// Loop termination causes
	ErrStoreFailures = errors.ErrorCode("capture_store_failures_exceeded")
)
