package frame

import "codeberg.org/halcyon/robomon/internal/errors"

const (
	// Decode errors
	ErrDecodeFrame   = errors.ErrorCode("frame_decode_failed")
	ErrMissingField  = errors.ErrorCode("frame_missing_field")
	ErrInvalidField  = errors.ErrorCode("frame_invalid_field")
	ErrJointMismatch = errors.ErrorCode("frame_joint_length_mismatch")

	// Stream errors
	ErrLineTooLong = errors.ErrorCode("frame_line_too_long")
)
