package api

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	ErrServe    = errors.ErrorCode("api_serve_failed")
	ErrShutdown = errors.ErrorCode("api_shutdown_failed")
)
