package archive

import (
	"context"

	"codeberg.org/halcyon/robomon/internal/frame"
)

// Recorder defines the core domain interface
type Recorder interface {
	RecordThermal(ctx context.Context, f *frame.ThermalFrame) error
	RecordTorque(ctx context.Context, s *frame.TorqueSnapshot) error
	Close() error
}

// Repository defines the interface for archive data storage
type Repository interface {
	StoreThermal(f *frame.ThermalFrame) error
	StoreTorque(s *frame.TorqueSnapshot) error
	Close() error
}
