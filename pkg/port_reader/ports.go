package port_reader

import (
	"fmt"
	"io"
	"sort"
	"time"

	jacobsa "github.com/jacobsa/go-serial/serial"
	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ListPorts enumerates the serial ports present on this machine.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, portInfoFromDetails(d))
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Device < ports[j].Device })
	return ports, nil
}

func portInfoFromDetails(d *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Device:       d.Name,
		Description:  d.Product,
		IsUSB:        d.IsUSB,
		VID:          d.VID,
		PID:          d.PID,
		SerialNumber: d.SerialNumber,
	}
	if info.Description == "" {
		if d.IsUSB {
			info.Description = fmt.Sprintf("USB VID:PID=%s:%s", d.VID, d.PID)
		} else {
			info.Description = "n/a"
		}
	}
	return info
}

func (p PortInfo) String() string {
	return fmt.Sprintf("Device:%s\tDescription:%s", p.Device, p.Description)
}

// FormatPortList numbers ports the way the selection prompt shows them.
func FormatPortList(ports []PortInfo) []string {
	lines := make([]string, len(ports))
	for i, port := range ports {
		lines[i] = fmt.Sprintf("%d\t%s", i, port)
	}
	return lines
}

func openPort(opts Options) (io.ReadWriteCloser, error) {
	switch opts.Backend {
	case "jacobsa":
		return openJacobsa(opts)
	case "bugst":
		return openBugst(opts)
	default:
		return nil, fmt.Errorf("unknown serial backend %q", opts.Backend)
	}
}

func openJacobsa(opts Options) (io.ReadWriteCloser, error) {
	options := jacobsa.OpenOptions{
		PortName:        opts.Port,
		BaudRate:        opts.Baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	if opts.ReadTimeout > 0 {
		// VMIN=0 with VTIME set: reads give up after the timeout with io.EOF
		options.MinimumReadSize = 0
		options.InterCharacterTimeout = uint(opts.ReadTimeout / time.Millisecond)
	}
	return jacobsa.Open(options)
}

func openBugst(opts Options) (io.ReadWriteCloser, error) {
	port, err := bugst.Open(opts.Port, &bugst.Mode{
		BaudRate: int(opts.Baudrate),
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return &timeoutPort{Port: port}, nil
}

// go.bug.st reports a read timeout as (0, nil), which bufio treats as no
// progress. Map it to io.EOF like the jacobsa backend does.
type timeoutPort struct {
	bugst.Port
}

func (t *timeoutPort) Read(p []byte) (int, error) {
	n, err := t.Port.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}
