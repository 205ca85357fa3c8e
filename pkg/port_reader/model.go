package port_reader

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/frame"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

type Options struct {
	Port     string
	Baudrate uint
	// "jacobsa" (default) or "bugst"
	Backend string
	// 0 blocks until at least one byte arrives
	ReadTimeout time.Duration
	Codec       frame.Codec
}

type HandshakeOptions struct {
	LinkAddress string
	RetryDelay  time.Duration
	ConnectWait time.Duration
}

// BTReader owns the serial link to the Bluetooth adapter.
type BTReader struct {
	opts Options

	serialPort io.ReadWriteCloser
	reader     *bufio.Reader
	scanner    *frame.Scanner
	closeMutex sync.Mutex
	closed     bool

	latestSample *types.Sample
	sampleMutex  sync.RWMutex
	// Serialises every write to the adapter
	writeMutex sync.Mutex
	stopSignal atomic.Bool
	// Noise bytes dropped by the scanner, readable from any goroutine
	skipped atomic.Int64

	retryDelay time.Duration
	now        func() time.Time
}

// PortInfo describes one serial port found on the system.
type PortInfo struct {
	Device       string
	Description  string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}
