package threshold_test

import (
	"testing"

	"codeberg.org/halcyon/robomon/internal/threshold"
	"github.com/stretchr/testify/assert"
)

var defaultLimits = threshold.Limits{Threshold: 30, Warning: 30, Critical: 33}

func TestNormalize(t *testing.T) {
	// Celsius samples compare against the threshold as configured
	assert.InDelta(t, 30.0, threshold.Normalize(45.0, 30.0), 0.0001)
	assert.InDelta(t, 30.0, threshold.Normalize(120.0, 30.0), 0.0001)

	// Samples above the scale floor get a Kelvin-shifted threshold
	assert.InDelta(t, 303.15, threshold.Normalize(120.1, 30.0), 0.0001)
	assert.InDelta(t, 303.15, threshold.Normalize(305.0, 30.0), 0.0001)
}

func TestEvaluateThermal(t *testing.T) {
	cases := []struct {
		name     string
		tMax     float64
		alerting bool
		severity threshold.Severity
	}{
		{"below threshold", 29.9, false, ""},
		{"at threshold", 30.0, true, threshold.SeverityInfo},
		{"above warning", 32.0, true, threshold.SeverityWarning},
		{"at critical", 33.0, true, threshold.SeverityWarning},
		{"above critical", 34.0, true, threshold.SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := threshold.EvaluateThermal(tc.tMax, defaultLimits)
			assert.Equal(t, tc.alerting, result.Alerting)
			if tc.alerting {
				assert.Equal(t, tc.severity, result.Severity)
			}
		})
	}
}

func TestEvaluateThermalKelvinScale(t *testing.T) {
	// 305 K is 31.85 C: above the 30 C threshold, below critical
	result := threshold.EvaluateThermal(305.0, defaultLimits)
	assert.True(t, result.Alerting)
	assert.Equal(t, threshold.SeverityWarning, result.Severity)
	assert.InDelta(t, 303.15, result.Threshold, 0.0001)

	// 300 K is 26.85 C: quiet
	result = threshold.EvaluateThermal(300.0, defaultLimits)
	assert.False(t, result.Alerting)
}

func TestEvaluateThermalLowThreshold(t *testing.T) {
	// An alerting boundary below the warning boundary still alerts, at INFO
	limits := threshold.Limits{Threshold: 25, Warning: 30, Critical: 33}

	result := threshold.EvaluateThermal(27.0, limits)
	assert.True(t, result.Alerting)
	assert.Equal(t, threshold.SeverityInfo, result.Severity)
}

func TestEvaluateTorque(t *testing.T) {
	ideal := []float64{0.0, 1.0, -0.5, 2.0}
	actual := []float64{0.47, 1.5, -1.2, 2.1}

	diffs, alerts := threshold.EvaluateTorque(ideal, actual)

	assert.InDeltaSlice(t, []float64{0.47, 0.5, 0.7, 0.1}, diffs, 0.0001)

	// 0.47 exactly does not alert; 0.5 warns; 0.7 is critical
	assert.Len(t, alerts, 2)
	assert.Equal(t, 2, alerts[0].Joint)
	assert.Equal(t, threshold.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, 3, alerts[1].Joint)
	assert.Equal(t, threshold.SeverityCritical, alerts[1].Severity)
}

func TestEvaluateTorqueQuiet(t *testing.T) {
	diffs, alerts := threshold.EvaluateTorque([]float64{1, 2, 3}, []float64{1.1, 2.2, 2.9})

	assert.Len(t, diffs, 3)
	assert.Empty(t, alerts)
}
