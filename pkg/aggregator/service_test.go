package aggregator

import (
	"math"
	"testing"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	start := time.Unix(1700000000, 0)
	samples := []*types.Sample{
		{Timestamp: start, Tick: math.MaxUint32 - 5, Measured: 1, Setpoint: 2, Kp: 1},
		{Timestamp: start.Add(time.Second), Tick: 0, Measured: 2, Setpoint: 2, Kp: 1.5},
		{Timestamp: start.Add(2 * time.Second), Tick: 5, Measured: 3, Setpoint: 2, Kp: 1.5},
	}

	s := Summarize(samples)
	require.Equal(t, 3, s.Count)
	require.Equal(t, uint32(11), s.TickSpan)
	require.Equal(t, 2*time.Second, s.Duration)
	require.InDelta(t, 2.0, s.MeanMeasured, 1e-9)
	require.Equal(t, 1.0, s.MinMeasured)
	require.Equal(t, 3.0, s.MaxMeasured)
	require.InDelta(t, 2.0/3.0, s.MeanAbsError, 1e-9)
	require.InDelta(t, math.Sqrt(2.0/3.0), s.RMSError, 1e-9)
	require.Equal(t, 1.0, s.MaxAbsError)
	require.Equal(t, 1, s.GainChanges)
	require.InDelta(t, 1.0, s.SampleRate(), 1e-9)

	text := s.String()
	require.Contains(t, text, "3 samples over 2s (11 ticks)")
	require.Contains(t, text, "gain changes seen: 1")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Equal(t, Summary{}, s)
	require.Equal(t, "no samples received", s.String())
	require.Equal(t, 0.0, s.SampleRate())
}

func TestSummarizeSingleSample(t *testing.T) {
	s := Summarize([]*types.Sample{{Tick: 7, Measured: 4, Setpoint: 5}})
	require.Equal(t, 1, s.Count)
	require.Equal(t, uint32(0), s.TickSpan)
	require.Equal(t, 4.0, s.MinMeasured)
	require.Equal(t, 4.0, s.MaxMeasured)
	require.Equal(t, 1.0, s.RMSError)
	require.Equal(t, 0, s.GainChanges)
}
