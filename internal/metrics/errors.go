package metrics

import "codeberg.org/mutker/profilectl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")
	ErrInvalidBatch  = errors.ErrorCode("metrics_invalid_batch")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("metrics_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("metrics_transaction_failed")

	// Storage Errors
	ErrStorageInit    = errors.ErrInitMetrics
	ErrStorageClose   = errors.ErrCloseMetrics
	ErrQueryFailed    = errors.ErrorCode("metrics_query_failed")
	ErrHistoryMissing = errors.ErrorCode("metrics_history_missing")
	ErrReadOnly       = errors.ErrorCode("metrics_read_only")

	// Recording Errors
	ErrRecordFailed      = errors.ErrorCode("metrics_record_failed")
	ErrInvalidTransition = errors.ErrorCode("metrics_invalid_transition")
)
