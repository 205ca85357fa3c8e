package port_reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/frame"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	log "github.com/sirupsen/logrus"
)

const maxReadErrors = 10

var ErrNotConnected = errors.New("serial port not connected")

// Initialize a new BTReader client.
func NewBTReader(opts Options) *BTReader {
	if opts.Backend == "" {
		opts.Backend = "jacobsa"
	}
	return &BTReader{
		opts:       opts,
		scanner:    frame.NewScanner(opts.Codec),
		retryDelay: time.Second,
		now:        time.Now,
	}
}

// Open the connection to the adapter.
func (p *BTReader) Connect() error {
	port, err := openPort(p.opts)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	p.Attach(port)
	log.Infof("Connected to serial port %s (%s backend)", p.opts.Port, p.opts.Backend)
	return nil
}

// Attach uses an already opened port. Reads must return io.EOF when nothing
// arrived within the read timeout.
func (p *BTReader) Attach(port io.ReadWriteCloser) {
	p.serialPort = port
	p.reader = bufio.NewReader(port)
	p.scanner.Reset()
}

func (p *BTReader) Disconnect() {
	p.closeMutex.Lock()
	defer p.closeMutex.Unlock()
	if p.serialPort != nil && !p.closed {
		p.serialPort.Close()
		p.closed = true
		log.Info("Disconnected from serial port")
	}
}

// ReadLoop reads frames until the context ends or StopReading is called.
// handleSample runs on the reader goroutine and must return quickly.
func (p *BTReader) ReadLoop(ctx context.Context, handleSample func(sample *types.Sample)) error {
	if p.serialPort == nil {
		return ErrNotConnected
	}

	// Tolerance before we report error.
	consecutiveErrors := 0
	var lastError error
	buf := make([]byte, 256)

	for consecutiveErrors < maxReadErrors {
		// Check for Stop command
		if p.stopping(ctx) {
			return nil
		}

		n, err := p.reader.Read(buf)
		if n > 0 {
			consecutiveErrors = 0
			p.handleBytes(buf[:n], handleSample)
		}
		if err == nil || errors.Is(err, io.EOF) {
			// EOF is a read timeout, nothing arrived
			continue
		}
		if p.stopping(ctx) {
			return nil
		}

		consecutiveErrors++
		lastError = err
		log.Errorf("Error reading serial port (%d/%d): %v", consecutiveErrors, maxReadErrors, err)
		if err := sleepContext(ctx, p.retryDelay); err != nil {
			return nil
		}
	}

	log.Errorf("Too many consecutive errors (%d), stopping reader: %v", maxReadErrors, lastError)
	return lastError
}

func (p *BTReader) handleBytes(data []byte, handleSample func(sample *types.Sample)) {
	samples, errs := p.scanner.Feed(data, p.now())
	p.skipped.Store(int64(p.scanner.Skipped))
	for _, err := range errs {
		log.Warnf("Discarding malformed frame: %v", err)
	}
	for _, sample := range samples {
		p.sampleMutex.Lock()
		p.latestSample = sample
		p.sampleMutex.Unlock()

		handleSample(sample)
	}
}

func (p *BTReader) stopping(ctx context.Context) bool {
	return p.stopSignal.Load() || ctx.Err() != nil
}

// StopReading ends ReadLoop and closes the port so a blocked read returns.
func (p *BTReader) StopReading() {
	p.stopSignal.Store(true)
	p.Disconnect()
}

func (p *BTReader) GetLatestSample() *types.Sample {
	p.sampleMutex.RLock()
	defer p.sampleMutex.RUnlock()
	return p.latestSample
}

// WriteGains sends the outbound frame carrying new gains and setpoint.
func (p *BTReader) WriteGains(g types.Gains) error {
	data, err := p.opts.Codec.EncodeGains(g)
	if err != nil {
		return err
	}
	return p.write(data)
}

func (p *BTReader) write(data []byte) error {
	p.writeMutex.Lock()
	defer p.writeMutex.Unlock()

	if p.serialPort == nil {
		return ErrNotConnected
	}
	if _, err := p.serialPort.Write(data); err != nil {
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	return nil
}

// SkippedBytes counts bytes discarded while looking for frames.
func (p *BTReader) SkippedBytes() int64 {
	return p.skipped.Load()
}

func (p *BTReader) Device() string {
	return p.opts.Port
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
