package ingest

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	ErrListen        = errors.ErrorCode("ingest_listen_failed")
	ErrAlreadyActive = errors.ErrorCode("ingest_listener_already_active")
)
