package port_reader

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

var errFakeClosed = errors.New("fake port closed")

// fakePort stands in for the adapter. Reads time out with io.EOF when no
// data is queued, like a port opened with a read timeout.
type fakePort struct {
	mu      sync.Mutex
	rx      bytes.Buffer
	writes  [][]byte
	closed  bool
	respond func(written []byte) []byte
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	empty := f.rx.Len() == 0
	f.mu.Unlock()
	if empty {
		time.Sleep(2 * time.Millisecond)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errFakeClosed
	}
	if f.rx.Len() == 0 {
		return 0, io.EOF
	}
	return f.rx.Read(p)
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errFakeClosed
	}
	f.writes = append(f.writes, append([]byte{}, p...))
	if f.respond != nil {
		f.rx.Write(f.respond(p))
	}
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) inject(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx.Write(data)
}

func (f *fakePort) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	for i, w := range f.writes {
		out[i] = string(w)
	}
	return out
}
