package aggregator

import "time"

// Summary describes one debugging session.
type Summary struct {
	Count     int
	FirstTick uint32
	LastTick  uint32
	// Firmware ticks between first and last sample, wrap-safe
	TickSpan uint32
	Duration time.Duration

	MeanMeasured float64
	MinMeasured  float64
	MaxMeasured  float64

	// Error is setpoint - measured
	MeanAbsError float64
	RMSError     float64
	MaxAbsError  float64

	// Times the device reported different gains than the previous frame
	GainChanges int
}
