package control

import "codeberg.org/mutker/ircapture/internal/errors"

const (
	ErrInvalidArgument      = errors.ErrInvalidArgument
	ErrInvalidDispatchTable = errors.ErrorCode("control_invalid_dispatch_table")
	ErrEngineInit           = errors.ErrorCode("control_engine_init_failed")

	// Transport Errors
	ErrConnect      = errors.ErrorCode("transport_connect_failed")
	ErrSubscribe    = errors.ErrorCode("transport_subscribe_failed")
	ErrCloseTimeout = errors.ErrorCode("transport_close_timeout")
)
