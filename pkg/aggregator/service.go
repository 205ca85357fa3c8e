package aggregator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/pidutils"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/dustin/go-humanize"
)

// Summarize computes the session statistics. Samples must be in arrival order.
func Summarize(samples []*types.Sample) Summary {
	var summary Summary
	if len(samples) == 0 {
		return summary
	}

	first, last := samples[0], samples[len(samples)-1]
	summary.Count = len(samples)
	summary.FirstTick = first.Tick
	summary.LastTick = last.Tick
	// uint32 subtraction wraps the same way the firmware counter does
	summary.TickSpan = last.Tick - first.Tick
	summary.Duration = last.Timestamp.Sub(first.Timestamp)

	summary.MinMeasured = math.Inf(1)
	summary.MaxMeasured = math.Inf(-1)

	var sumMeasured, sumAbsError, sumSquaredError float64
	var previous types.Gains
	for i, sample := range samples {
		measured := float64(sample.Measured)
		errValue := float64(sample.ControlError())

		sumMeasured += measured
		sumAbsError += math.Abs(errValue)
		sumSquaredError += errValue * errValue
		summary.MinMeasured = math.Min(summary.MinMeasured, measured)
		summary.MaxMeasured = math.Max(summary.MaxMeasured, measured)
		summary.MaxAbsError = math.Max(summary.MaxAbsError, math.Abs(errValue))

		gains := sample.Gains()
		if i > 0 && gains != previous {
			summary.GainChanges++
		}
		previous = gains
	}

	n := float64(len(samples))
	summary.MeanMeasured = sumMeasured / n
	summary.MeanAbsError = sumAbsError / n
	summary.RMSError = math.Sqrt(sumSquaredError / n)
	return summary
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "no samples received"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s samples over %s (%s ticks)\n",
		humanize.Comma(int64(s.Count)),
		s.Duration.Round(time.Millisecond),
		humanize.Comma(int64(s.TickSpan)))
	fmt.Fprintf(&b, "measured: mean %g min %g max %g\n",
		pidutils.Round(s.MeanMeasured, 4), pidutils.Round(s.MinMeasured, 4), pidutils.Round(s.MaxMeasured, 4))
	fmt.Fprintf(&b, "error: mean abs %g rms %g max abs %g\n",
		pidutils.Round(s.MeanAbsError, 4), pidutils.Round(s.RMSError, 4), pidutils.Round(s.MaxAbsError, 4))
	fmt.Fprintf(&b, "gain changes seen: %d", s.GainChanges)
	return b.String()
}

// SampleRate is frames per second over the session.
func (s Summary) SampleRate() float64 {
	if s.Count < 2 || s.Duration <= 0 {
		return 0
	}
	return float64(s.Count-1) / s.Duration.Seconds()
}
