package port_reader

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestPortInfoFromDetails(t *testing.T) {
	info := portInfoFromDetails(&enumerator.PortDetails{
		Name:    "/dev/ttyUSB0",
		IsUSB:   true,
		VID:     "10c4",
		PID:     "ea60",
		Product: "CP2102 USB to UART Bridge Controller",
	})
	require.Equal(t, "Device:/dev/ttyUSB0\tDescription:CP2102 USB to UART Bridge Controller", info.String())

	info = portInfoFromDetails(&enumerator.PortDetails{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1a86", PID: "7523"})
	require.Equal(t, "USB VID:PID=1a86:7523", info.Description)

	info = portInfoFromDetails(&enumerator.PortDetails{Name: "/dev/rfcomm0"})
	require.Equal(t, "n/a", info.Description)
	require.False(t, info.IsUSB)
}

func TestFormatPortList(t *testing.T) {
	lines := FormatPortList([]PortInfo{
		{Device: "/dev/rfcomm0", Description: "n/a"},
		{Device: "/dev/ttyUSB0", Description: "CP2102"},
	})
	require.Equal(t, []string{
		"0\tDevice:/dev/rfcomm0\tDescription:n/a",
		"1\tDevice:/dev/ttyUSB0\tDescription:CP2102",
	}, lines)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := openPort(Options{Port: "/dev/null", Backend: "parallel"})
	require.Error(t, err)
}
