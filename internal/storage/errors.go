package storage

import "codeberg.org/mutker/ircapture/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBURI  = errors.ErrorCode("storage_invalid_db_uri")

	// Schema Errors
	ErrSchemaInitFailed      = errors.ErrorCode("storage_schema_init_failed")
	ErrSchemaVersionMismatch = errors.ErrorCode("storage_schema_version_mismatch")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrAppendFailed = errors.ErrorCode("storage_append_failed")
	ErrQueryFailed  = errors.ErrorCode("storage_query_failed")
)
