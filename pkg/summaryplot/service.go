// Package summaryplot renders measured value against setpoint for a run.
package summaryplot

import (
	"errors"
	"io"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoSamples = errors.New("no samples to plot")

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 8 * vg.Inch
)

// SaveSummaryPlot writes the chart to path, format taken from the extension.
func SaveSummaryPlot(samples []*types.Sample, path string) error {
	p, err := newPlot(samples)
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}

// WriteSummaryPlot writes the chart to w as PNG.
func WriteSummaryPlot(samples []*types.Sample, w io.Writer) error {
	p, err := newPlot(samples)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

func newPlot(samples []*types.Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	measured := make(plotter.XYs, 0, len(samples))
	setpoint := make(plotter.XYs, 0, len(samples))
	start := samples[0].Timestamp
	for _, s := range samples {
		x := s.Timestamp.Sub(start).Seconds()
		measured = append(measured, plotter.XY{X: x, Y: float64(s.Measured)})
		setpoint = append(setpoint, plotter.XY{X: x, Y: float64(s.Setpoint)})
	}

	p := plot.New()
	p.Title.Text = "PID response"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Value"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLines(p,
		"measured", measured,
		"setpoint", setpoint,
	); err != nil {
		return nil, err
	}
	return p, nil
}
