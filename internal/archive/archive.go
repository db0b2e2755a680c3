// Package archive persists accepted frames to a SQLite database for offline
// analysis. Disabled by default; failures are logged, never fatal.
package archive

import (
	"context"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the archive is disabled, return a no-op recorder
	if !cfg.Enabled {
		logger.Debug().Msg("Frame archive disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Msg("Frame archive initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) RecordThermal(ctx context.Context, f *frame.ThermalFrame) error {
	errFactory := errors.New()

	if f == nil {
		return errFactory.New(ErrInvalidRecord)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.StoreThermal(f)
	}
}

func (s *service) RecordTorque(ctx context.Context, snapshot *frame.TorqueSnapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidRecord)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.StoreTorque(snapshot)
	}
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (*noopRecorder) RecordThermal(_ context.Context, _ *frame.ThermalFrame) error {
	return nil
}

func (*noopRecorder) RecordTorque(_ context.Context, _ *frame.TorqueSnapshot) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}
