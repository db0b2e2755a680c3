package ingest

import (
	"context"
	"fmt"

	"codeberg.org/halcyon/robomon/internal/archive"
	"codeberg.org/halcyon/robomon/internal/dedup"
	"codeberg.org/halcyon/robomon/internal/eventlog"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/metric"
	"codeberg.org/halcyon/robomon/internal/settings"
	"codeberg.org/halcyon/robomon/internal/state"
	"codeberg.org/halcyon/robomon/internal/threshold"
)

// Pipeline drives one decoded line through evaluation, deduplication, the
// event log and the state publisher. Decode failures affect only that line;
// sink failures are logged and never stop ingestion.
type Pipeline struct {
	Settings *settings.Store
	Dedup    *dedup.Deduplicator
	Events   *eventlog.Log
	State    *state.Publisher
	Archive  archive.Recorder
	Metrics  *metric.Metrics
}

func (p *Pipeline) processThermal(ctx context.Context, line []byte) {
	f, err := frame.DecodeThermal(line)
	if err != nil {
		p.Metrics.RecordDecodeError(string(frame.StreamThermal))
		logger.Warn().Err(err).Str("stream", string(frame.StreamThermal)).Msg("Dropping malformed line")
		return
	}

	p.Metrics.RecordFrame(string(frame.StreamThermal))
	logger.Debug().
		Int("frame_no", f.FrameNo).
		Str("ts", f.Timestamp).
		Float64("t_min", f.TMin).
		Float64("t_max", f.TMax).
		Float64("t_mean", f.TMean).
		Msg("Thermal frame")

	if err := p.Archive.RecordThermal(ctx, f); err != nil {
		logger.Error().Err(err).Msg("Failed to archive thermal frame")
	}

	p.State.SetThermal(f)

	cfg := p.Settings.Get()
	result := threshold.EvaluateThermal(f.TMax, threshold.Limits{
		Threshold: cfg.ThermalThresholdC,
		Warning:   cfg.ThermalWarningC,
		Critical:  cfg.ThermalCriticalC,
	})
	if !result.Alerting {
		return
	}

	key := dedup.Key{Stream: frame.StreamThermal, ID: f.FrameNo}
	if !p.Dedup.ShouldEmit(key) {
		p.Metrics.RecordSuppressed(string(frame.StreamThermal))
		return
	}

	p.emit(eventlog.AlertEvent{
		Timestamp: f.Timestamp,
		Type:      frame.StreamThermal,
		Severity:  result.Severity,
		Message:   "High temperature detected",
		Meta: map[string]any{
			"t_max":     f.TMax,
			"threshold": result.Threshold,
			"frame_no":  f.FrameNo,
		},
	})
}

func (p *Pipeline) processTorque(ctx context.Context, line []byte) {
	f, err := frame.DecodeTorque(line)
	if err != nil {
		p.Metrics.RecordDecodeError(string(frame.StreamTorque))
		logger.Warn().Err(err).Str("stream", string(frame.StreamTorque)).Msg("Dropping malformed line")
		return
	}

	p.Metrics.RecordFrame(string(frame.StreamTorque))

	diffs, alerts := threshold.EvaluateTorque(f.TorqueIdeal, f.TorqueActual)
	snapshot := &frame.TorqueSnapshot{
		TorqueFrame: *f,
		Diffs:       diffs,
		Anomaly:     len(alerts) > 0,
	}

	logger.Debug().
		Int("frame_no", f.FrameNo).
		Bool("anomaly", snapshot.Anomaly).
		Msg("Torque frame")

	if err := p.Archive.RecordTorque(ctx, snapshot); err != nil {
		logger.Error().Err(err).Msg("Failed to archive torque frame")
	}

	for _, alert := range alerts {
		key := dedup.Key{Stream: frame.StreamTorque, ID: alert.Joint}
		if !p.Dedup.ShouldEmit(key) {
			p.Metrics.RecordSuppressed(string(frame.StreamTorque))
			continue
		}

		p.emit(eventlog.AlertEvent{
			Timestamp: f.Timestamp,
			Type:      frame.StreamTorque,
			Severity:  alert.Severity,
			Message:   fmt.Sprintf("Joint %d torque exceeded threshold", alert.Joint),
			Meta: map[string]any{
				"joint":     alert.Joint,
				"diff":      alert.Diff,
				"threshold": threshold.TorqueThreshold,
				"frame_no":  f.FrameNo,
			},
		})
	}

	p.State.SetTorque(snapshot)
}

func (p *Pipeline) emit(event eventlog.AlertEvent) {
	if err := p.Events.Append(event); err != nil {
		logger.Error().Err(err).Msg("Failed to record alert event")
		return
	}

	p.Metrics.RecordAlert(string(event.Type), string(event.Severity))
	logger.Info().
		Str("type", string(event.Type)).
		Str("severity", string(event.Severity)).
		Str("message", event.Message).
		Msg("Alert recorded")
}
