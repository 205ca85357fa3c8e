package types

import (
	"encoding/json"
	"math"
	"time"
)

// Sample is one decoded telemetry frame.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`

	// Firmware loop counter, wraps at 2^32
	Tick uint32 `json:"tick"`

	// Control loop state
	Measured float32 `json:"measured"`
	Setpoint float32 `json:"setpoint"`

	// Gains currently applied on the device
	Kp float32 `json:"kp"`
	Ki float32 `json:"ki"`
	Kd float32 `json:"kd"`
}

// Gains are the values an operator tunes and pushes to the device.
type Gains struct {
	Kp       float32 `json:"kp"`
	Ki       float32 `json:"ki"`
	Kd       float32 `json:"kd"`
	Setpoint float32 `json:"setpoint"`
}

func (s *Sample) Gains() Gains {
	return Gains{Kp: s.Kp, Ki: s.Ki, Kd: s.Kd, Setpoint: s.Setpoint}
}

// Finite reports whether every value can be sent to the firmware.
func (g Gains) Finite() bool {
	for _, v := range []float32{g.Kp, g.Ki, g.Kd, g.Setpoint} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ControlError is the error term as the firmware sees it.
func (s *Sample) ControlError() float32 {
	return s.Setpoint - s.Measured
}

func (s *Sample) ToJsonBytes() []byte {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}

// Returns nil when the payload is not a sample.
func SampleFromJsonBytes(data []byte) *Sample {
	var sample Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil
	}
	return &sample
}

func GainsFromJsonBytes(data []byte) (*Gains, error) {
	var gains Gains
	if err := json.Unmarshal(data, &gains); err != nil {
		return nil, err
	}
	return &gains, nil
}
