package settings

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	ErrPersist      = errors.ErrorCode("settings_persist_failed")
	ErrInvalidValue = errors.ErrorCode("settings_invalid_value")
)
