package sensor

import "codeberg.org/mutker/ircapture/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidKind   = errors.ErrInvalidSensorType
	ErrInvalidRange  = errors.ErrInvalidSensorRange

	// Read Errors
	ErrUnsupported = errors.ErrorCode("sensor_unsupported")
	ErrReadFailed  = errors.ErrorCode("sensor_read_failed")
)
