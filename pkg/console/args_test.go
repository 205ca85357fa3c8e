package console

import (
	"testing"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/port_reader"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestParseSetArgs(t *testing.T) {
	field, value, err := ParseSetArgs([]string{"KP", "1.25"})
	require.NoError(t, err)
	require.Equal(t, "kp", field)
	require.Equal(t, float32(1.25), value)

	_, _, err = ParseSetArgs([]string{"kp"})
	require.ErrorIs(t, err, ErrMissingValue)

	_, _, err = ParseSetArgs([]string{"kp", "fast"})
	require.ErrorContains(t, err, `invalid kp "fast"`)

	for _, raw := range []string{"inf", "-Inf", "NaN", "1e40"} {
		_, _, err = ParseSetArgs([]string{"kp", raw})
		require.ErrorContains(t, err, "invalid kp", raw)
	}
}

func TestParseGainsArgs(t *testing.T) {
	g, err := ParseGainsArgs([]string{"2", "0.5", "-0.125", "100"})
	require.NoError(t, err)
	require.Equal(t, types.Gains{Kp: 2, Ki: 0.5, Kd: -0.125, Setpoint: 100}, g)

	_, err = ParseGainsArgs([]string{"2", "0.5", "1"})
	require.ErrorIs(t, err, ErrMissingValue)

	_, err = ParseGainsArgs([]string{"2", "x", "1", "1"})
	require.ErrorContains(t, err, "invalid ki")

	_, err = ParseGainsArgs([]string{"2", "0.5", "1", "nan"})
	require.ErrorContains(t, err, "invalid setpoint")
}

func TestParseOnOff(t *testing.T) {
	for _, in := range []string{"on", "ON", "true", "1", "yes"} {
		v, err := ParseOnOff(in)
		require.NoError(t, err)
		require.True(t, v, in)
	}
	for _, in := range []string{"off", "false", "0", "no"} {
		v, err := ParseOnOff(in)
		require.NoError(t, err)
		require.False(t, v, in)
	}
	_, err := ParseOnOff("maybe")
	require.Error(t, err)
}

func TestSelectDeviceWithoutPorts(t *testing.T) {
	_, err := SelectDevice([]port_reader.PortInfo{})
	require.ErrorIs(t, err, ErrNoPorts)
}

func TestPlotFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	require.Equal(t, "pid-20240309-140507.png", PlotFileName(at))
}

func TestFormatGains(t *testing.T) {
	require.Equal(t, "local  kp=1 ki=0.5 kd=0 setpoint=3",
		formatGains("local ", types.Gains{Kp: 1, Ki: 0.5, Setpoint: 3}))
}
