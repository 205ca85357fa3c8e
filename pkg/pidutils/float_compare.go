package pidutils

import (
	"math"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

// Absolute tolerance, compared in float64 so float32 rounding doesn't bite.
func WithinTolerance(a, b float32, tolerance float64) bool {
	return math.Abs(float64(a)-float64(b)) <= tolerance
}

func GainsEqual(a, b types.Gains, tolerance float64) bool {
	return WithinTolerance(a.Kp, b.Kp, tolerance) &&
		WithinTolerance(a.Ki, b.Ki, tolerance) &&
		WithinTolerance(a.Kd, b.Kd, tolerance) &&
		WithinTolerance(a.Setpoint, b.Setpoint, tolerance)
}

// DriftedFields lists which values differ, for log lines.
func DriftedFields(local, device types.Gains, tolerance float64) []string {
	var fields []string
	if !WithinTolerance(local.Kp, device.Kp, tolerance) {
		fields = append(fields, "kp")
	}
	if !WithinTolerance(local.Ki, device.Ki, tolerance) {
		fields = append(fields, "ki")
	}
	if !WithinTolerance(local.Kd, device.Kd, tolerance) {
		fields = append(fields, "kd")
	}
	if !WithinTolerance(local.Setpoint, device.Setpoint, tolerance) {
		fields = append(fields, "setpoint")
	}
	return fields
}

func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
