package eventlog

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	ErrOpenLog   = errors.ErrorCode("eventlog_open_failed")
	ErrAppendLog = errors.ErrorCode("eventlog_append_failed")
	ErrCloseLog  = errors.ErrorCode("eventlog_close_failed")
)
