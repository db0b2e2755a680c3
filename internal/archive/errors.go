package archive

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrorCode("archive_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("archive_invalid_db_path")

	// Storage errors
	ErrStorageInit       = errors.ErrorCode("archive_storage_init_failed")
	ErrStorageClose      = errors.ErrorCode("archive_storage_close_failed")
	ErrTransactionFailed = errors.ErrorCode("archive_transaction_failed")

	// Operation errors
	ErrInvalidRecord    = errors.ErrorCode("archive_invalid_record")
	ErrOperationTimeout = errors.ErrorCode("archive_operation_timeout")
	ErrServiceShutdown  = errors.ErrorCode("archive_service_shutdown_failed")
)
