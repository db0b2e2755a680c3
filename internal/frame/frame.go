// Package frame holds the telemetry record types and the newline-delimited
// JSON decoding for both ingestion streams.
package frame

// Stream identifies which telemetry stream a record belongs to.
type Stream string

const (
	StreamThermal Stream = "THERMAL"
	StreamTorque  Stream = "TORQUE"
)

// ThermalFrame is one thermal-camera summary record.
type ThermalFrame struct {
	FrameNo   int     `json:"frame_no"`
	Timestamp string  `json:"timestamp"`
	TMin      float64 `json:"t_min"`
	TMax      float64 `json:"t_max"`
	TMean     float64 `json:"t_mean"`
	ImagePath *string `json:"image_path"`
}

// TorqueFrame is one joint-torque record. Ideal and actual carry one value
// per joint, in joint order.
type TorqueFrame struct {
	FrameNo      int       `json:"frame_no"`
	Timestamp    string    `json:"timestamp"`
	TorqueIdeal  []float64 `json:"torque_ideal"`
	TorqueActual []float64 `json:"torque_actual"`
}

// TorqueSnapshot is a torque frame enriched with the derived per-joint
// absolute differences and the overall anomaly flag, as published to viewers.
type TorqueSnapshot struct {
	TorqueFrame
	Diffs   []float64 `json:"diffs"`
	Anomaly bool      `json:"anomaly"`
}
