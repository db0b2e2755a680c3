// Package threshold classifies telemetry samples against alert boundaries.
package threshold

// Severity is the ordinal alert level.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

const (
	// KelvinOffset converts a Celsius threshold to an absolute-scale one.
	KelvinOffset = 273.15

	// absoluteScaleFloor: thermal values above this are taken to be on the
	// absolute temperature scale. Celsius readings sit in the 0-100 band;
	// KUKA logs on the Kelvin scale run around 295-310.
	absoluteScaleFloor = 120.0

	// TorqueThreshold is the fixed per-joint alerting boundary. Not
	// user-configurable; kept in lockstep with the dashboard.
	TorqueThreshold = 0.47

	torqueCritical = 0.6
	torqueWarning  = 0.3
)

// Limits are the configured thermal boundaries, in Celsius.
type Limits struct {
	Threshold float64
	Warning   float64
	Critical  float64
}

// ThermalResult is the classification of a single thermal sample.
type ThermalResult struct {
	Alerting bool
	Severity Severity
	// Threshold is the alerting boundary converted to the sample's scale,
	// for inclusion in event metadata.
	Threshold float64
}

// IsAbsoluteScale reports whether a thermal sample is assumed to be on the
// absolute temperature scale rather than Celsius. Decided per sample; scale
// consistency within one stream is the producer's responsibility.
func IsAbsoluteScale(value float64) bool {
	return value > absoluteScaleFloor
}

// Normalize converts a configured Celsius threshold into the same scale as
// the sample it will be compared against. The sample itself is never altered.
func Normalize(sample, thresholdC float64) float64 {
	if IsAbsoluteScale(sample) {
		return thresholdC + KelvinOffset
	}

	return thresholdC
}

// EvaluateThermal classifies a thermal sample's t_max against the limits.
// The alerting boundary and the warning boundary are configured
// independently, so a frame can alert at INFO severity when threshold is set
// below warning.
func EvaluateThermal(tMax float64, limits Limits) ThermalResult {
	thr := Normalize(tMax, limits.Threshold)
	warn := Normalize(tMax, limits.Warning)
	crit := Normalize(tMax, limits.Critical)

	result := ThermalResult{Threshold: thr}
	if tMax < thr {
		return result
	}

	result.Alerting = true
	switch {
	case tMax > crit:
		result.Severity = SeverityCritical
	case tMax > warn:
		result.Severity = SeverityWarning
	default:
		result.Severity = SeverityInfo
	}

	return result
}

// JointAlert is one joint whose torque deviation crossed the boundary.
// Joint numbering is 1-based, matching the robot's actuator labels.
type JointAlert struct {
	Joint    int
	Diff     float64
	Severity Severity
}

// EvaluateTorque computes per-joint absolute deviations and collects the
// joints that alert. The frame is anomalous if any joint alerts; each
// alerting joint proceeds independently to deduplication.
func EvaluateTorque(ideal, actual []float64) (diffs []float64, alerts []JointAlert) {
	diffs = make([]float64, len(actual))
	for j := range actual {
		diff := actual[j] - ideal[j]
		if diff < 0 {
			diff = -diff
		}
		diffs[j] = diff

		if diff > TorqueThreshold {
			alerts = append(alerts, JointAlert{
				Joint:    j + 1,
				Diff:     diff,
				Severity: torqueSeverity(diff),
			})
		}
	}

	return diffs, alerts
}

func torqueSeverity(diff float64) Severity {
	switch {
	case diff > torqueCritical:
		return SeverityCritical
	case diff > torqueWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
