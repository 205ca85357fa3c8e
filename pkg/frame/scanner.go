package frame

import (
	"bytes"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

var marker = []byte(Marker)

// Scanner picks inbound frames out of a byte stream that may contain debug
// prints, partial frames and line noise between them.
type Scanner struct {
	codec Codec
	buf   []byte

	// Bytes thrown away while looking for a marker
	Skipped int
}

func NewScanner(codec Codec) *Scanner {
	return &Scanner{
		codec: codec,
		buf:   make([]byte, 0, 4*codec.InboundLen()),
	}
}

// Feed appends data and returns every complete frame now available.
// A frame that fails to decode is reported in errs and scanning resumes at
// the next marker occurrence after its first byte.
func (s *Scanner) Feed(data []byte, at time.Time) (samples []*types.Sample, errs []error) {
	s.buf = append(s.buf, data...)
	frameLen := s.codec.InboundLen()

	start := 0
	for {
		idx := bytes.Index(s.buf[start:], marker)
		if idx < 0 {
			// Keep what could still become a marker
			keep := len(marker) - 1
			if rest := len(s.buf) - start; rest < keep {
				keep = rest
			}
			s.Skipped += len(s.buf) - start - keep
			start = len(s.buf) - keep
			break
		}
		s.Skipped += idx
		start += idx

		if len(s.buf)-start < frameLen {
			// Wait for the rest of the frame
			break
		}

		sample, err := s.codec.DecodeSample(s.buf[start:start+frameLen], at)
		if err != nil {
			errs = append(errs, err)
			s.Skipped++
			start++
			continue
		}
		samples = append(samples, sample)
		start += frameLen
	}

	// Compact so the buffer never grows past one frame plus a read
	s.buf = append(s.buf[:0], s.buf[start:]...)
	return samples, errs
}

// Buffered reports how many bytes are waiting for the rest of a frame.
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
}
