package frame

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"codeberg.org/halcyon/robomon/internal/errors"
)

// maxLineBytes bounds a single NDJSON line. Frames are a few hundred bytes;
// anything near this limit is garbage, not telemetry.
const maxLineBytes = 1 << 20

// LineReader splits a byte stream into trimmed, non-blank lines.
type LineReader struct {
	scanner *bufio.Scanner
}

func NewLineReader(r io.Reader) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	return &LineReader{scanner: scanner}
}

// Next returns the next non-blank line, io.EOF when the stream ends, or the
// underlying read error.
func (lr *LineReader) Next() ([]byte, error) {
	errFactory := errors.New()

	for lr.scanner.Scan() {
		line := bytes.TrimSpace(lr.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		return line, nil
	}

	if err := lr.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, errFactory.Wrap(ErrLineTooLong, err)
		}

		return nil, err
	}

	return nil, io.EOF
}

// thermalWire mirrors ThermalFrame with pointer fields so that absent and
// zero-valued fields are distinguishable during validation.
type thermalWire struct {
	FrameNo   *int     `json:"frame_no"`
	Timestamp *string  `json:"timestamp"`
	TMin      *float64 `json:"t_min"`
	TMax      *float64 `json:"t_max"`
	TMean     *float64 `json:"t_mean"`
	ImagePath *string  `json:"image_path"`
}

type torqueWire struct {
	FrameNo      *int      `json:"frame_no"`
	Timestamp    *string   `json:"timestamp"`
	TorqueIdeal  []float64 `json:"torque_ideal"`
	TorqueActual []float64 `json:"torque_actual"`
}

// DecodeThermal parses one line as a ThermalFrame. It either returns a fully
// valid frame or an error; a rejected line has no effect on anything.
func DecodeThermal(line []byte) (*ThermalFrame, error) {
	errFactory := errors.New()

	var wire thermalWire
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, errFactory.Wrap(ErrDecodeFrame, err)
	}

	switch {
	case wire.FrameNo == nil:
		return nil, errFactory.WithData(ErrMissingField, "frame_no")
	case wire.Timestamp == nil:
		return nil, errFactory.WithData(ErrMissingField, "timestamp")
	case wire.TMin == nil:
		return nil, errFactory.WithData(ErrMissingField, "t_min")
	case wire.TMax == nil:
		return nil, errFactory.WithData(ErrMissingField, "t_max")
	case wire.TMean == nil:
		return nil, errFactory.WithData(ErrMissingField, "t_mean")
	}

	if *wire.FrameNo < 0 {
		return nil, errFactory.WithData(ErrInvalidField, "frame_no")
	}
	if *wire.Timestamp == "" {
		return nil, errFactory.WithData(ErrInvalidField, "timestamp")
	}

	return &ThermalFrame{
		FrameNo:   *wire.FrameNo,
		Timestamp: *wire.Timestamp,
		TMin:      *wire.TMin,
		TMax:      *wire.TMax,
		TMean:     *wire.TMean,
		ImagePath: wire.ImagePath,
	}, nil
}

// DecodeTorque parses one line as a TorqueFrame.
func DecodeTorque(line []byte) (*TorqueFrame, error) {
	errFactory := errors.New()

	var wire torqueWire
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, errFactory.Wrap(ErrDecodeFrame, err)
	}

	switch {
	case wire.FrameNo == nil:
		return nil, errFactory.WithData(ErrMissingField, "frame_no")
	case wire.Timestamp == nil:
		return nil, errFactory.WithData(ErrMissingField, "timestamp")
	case wire.TorqueIdeal == nil:
		return nil, errFactory.WithData(ErrMissingField, "torque_ideal")
	case wire.TorqueActual == nil:
		return nil, errFactory.WithData(ErrMissingField, "torque_actual")
	}

	if *wire.FrameNo < 0 {
		return nil, errFactory.WithData(ErrInvalidField, "frame_no")
	}
	if len(wire.TorqueIdeal) == 0 || len(wire.TorqueIdeal) != len(wire.TorqueActual) {
		return nil, errFactory.WithData(ErrJointMismatch, struct {
			Ideal  int
			Actual int
		}{len(wire.TorqueIdeal), len(wire.TorqueActual)})
	}

	return &TorqueFrame{
		FrameNo:      *wire.FrameNo,
		Timestamp:    *wire.Timestamp,
		TorqueIdeal:  wire.TorqueIdeal,
		TorqueActual: wire.TorqueActual,
	}, nil
}
