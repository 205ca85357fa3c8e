// Console is the operator's foreground shell while samples stream in.
package console

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/aggregator"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/history"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/port_reader"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/summaryplot"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/tuner"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/abiosoft/ishell"
	"github.com/dustin/go-humanize"
)

const prompt = "pid > "

var (
	ErrNoPorts      = errors.New("no serial ports found")
	ErrNoSelection  = errors.New("no serial port selected")
	ErrMissingValue = errors.New("missing value")
)

type Console struct {
	Shell *ishell.Shell

	tuner   *tuner.Tuner
	history *history.History
	plotDir string
}

func New(t *tuner.Tuner, h *history.History, plotDir string) *Console {
	c := &Console{
		Shell:   ishell.New(),
		tuner:   t,
		history: h,
		plotDir: plotDir,
	}
	c.Shell.SetPrompt(prompt)
	c.Shell.Interrupt(func(ctx *ishell.Context, count int, input string) {
		if count >= 2 {
			ctx.Stop()
			return
		}
		ctx.Println("Input Ctrl-C once more to exit")
	})
	c.Shell.EOF(func(ctx *ishell.Context) {
		ctx.Stop()
	})
	for _, cmd := range c.commands() {
		c.Shell.AddCmd(cmd)
	}
	return c
}

// Run blocks until the operator leaves the shell or ctx is done.
func (c *Console) Run(ctx context.Context) {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			c.Shell.Close()
		case <-stopped:
		}
	}()

	c.Shell.Println("Bluetooth PID debugger, type help for commands")
	c.Shell.Run()
}

func (c *Console) commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name:    "show",
			Aliases: []string{"s"},
			Help:    "show latest sample and local gains",
			Func: func(ctx *ishell.Context) {
				ctx.Println(formatGains("local ", c.tuner.Local()))
				latest := c.history.Last(1)
				if len(latest) == 0 {
					ctx.Println("no samples received yet")
					return
				}
				ctx.Println(formatSample(latest[0]))
				if c.tuner.Drifted(latest[0]) {
					ctx.Println("device differs from local values")
				}
			},
		},
		{
			Name: "set",
			Help: "set <kp|ki|kd|setpoint> <value>, then push",
			Func: func(ctx *ishell.Context) {
				field, value, err := ParseSetArgs(ctx.Args)
				if err != nil {
					ctx.Err(err)
					return
				}
				if err := c.tuner.Set(field, value); err != nil {
					ctx.Err(err)
					return
				}
				c.push(ctx)
			},
		},
		{
			Name: "gains",
			Help: "gains <kp> <ki> <kd> <setpoint>, then push",
			Func: func(ctx *ishell.Context) {
				g, err := ParseGainsArgs(ctx.Args)
				if err != nil {
					ctx.Err(err)
					return
				}
				if err := c.tuner.SetGains(g); err != nil {
					ctx.Err(err)
					return
				}
				c.push(ctx)
			},
		},
		{
			Name:    "push",
			Aliases: []string{"p"},
			Help:    "send local gains to the device",
			Func:    c.push,
		},
		{
			Name: "auto",
			Help: "auto <on|off>, push local gains when the device drifts",
			Func: func(ctx *ishell.Context) {
				if len(ctx.Args) == 0 {
					ctx.Printf("auto push is %s\n", onOff(c.tuner.AutoPush()))
					return
				}
				enabled, err := ParseOnOff(ctx.Args[0])
				if err != nil {
					ctx.Err(err)
					return
				}
				c.tuner.SetAutoPush(enabled)
				ctx.Printf("auto push %s\n", onOff(enabled))
			},
		},
		{
			Name: "stats",
			Help: "session statistics",
			Func: func(ctx *ishell.Context) {
				stats := c.tuner.Stats()
				summary := aggregator.Summarize(c.history.Snapshot())
				ctx.Println(summary.String())
				ctx.Printf("rate: %.1f samples/s\n", summary.SampleRate())
				ctx.Printf("kept %s samples, dropped %s\n",
					humanize.Comma(int64(c.history.Len())),
					humanize.Comma(int64(c.history.Dropped())))
				ctx.Printf("pushes: %d, failed: %d\n", stats.Pushes, stats.Failures)
			},
		},
		{
			Name: "plot",
			Help: "plot [file], write measured vs setpoint as png",
			Func: func(ctx *ishell.Context) {
				path := filepath.Join(c.plotDir, PlotFileName(time.Now()))
				if len(ctx.Args) > 0 {
					path = ctx.Args[0]
				}
				if err := summaryplot.SaveSummaryPlot(c.history.Snapshot(), path); err != nil {
					ctx.Err(err)
					return
				}
				ctx.Printf("plot written to %s\n", path)
			},
		},
	}
}

func (c *Console) push(ctx *ishell.Context) {
	g := c.tuner.Local()
	if err := c.tuner.Push(tuner.TriggerConsole); err != nil {
		ctx.Err(fmt.Errorf("push failed: %w", err))
		return
	}
	ctx.Println(formatGains("pushed", g))
}

// SelectDevice lets the operator pick one of the enumerated ports.
func SelectDevice(ports []port_reader.PortInfo) (string, error) {
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	shell := ishell.New()
	defer shell.Close()
	index := shell.MultiChoice(port_reader.FormatPortList(ports), "Select serial port")
	if index < 0 || index >= len(ports) {
		return "", ErrNoSelection
	}
	return ports[index].Device, nil
}

// PlotFileName is the default name for a plot written at t.
func PlotFileName(t time.Time) string {
	return "pid-" + t.Format("20060102-150405") + ".png"
}

func formatGains(label string, g types.Gains) string {
	return fmt.Sprintf("%s kp=%g ki=%g kd=%g setpoint=%g", label, g.Kp, g.Ki, g.Kd, g.Setpoint)
}

func formatSample(s *types.Sample) string {
	return fmt.Sprintf("device kp=%g ki=%g kd=%g setpoint=%g measured=%g tick=%d (%s)",
		s.Kp, s.Ki, s.Kd, s.Setpoint, s.Measured, s.Tick, humanize.Time(s.Timestamp))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
