package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/sigurn/crc16"
)

// Same table the firmware uses.
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

func (c Codec) InboundLen() int {
	return c.frameLen(InboundPayloadLen)
}

func (c Codec) OutboundLen() int {
	return c.frameLen(OutboundPayloadLen)
}

func (c Codec) frameLen(payloadLen int) int {
	n := len(Marker) + payloadLen
	if c.Checksum {
		n += ChecksumLen
	}
	return n
}

// DecodeSample decodes one inbound frame from the start of b.
// Bytes past the frame length are ignored.
func (c Codec) DecodeSample(b []byte, at time.Time) (*types.Sample, error) {
	payload, err := c.unwrap(b, InboundPayloadLen)
	if err != nil {
		return nil, err
	}

	sample := &types.Sample{
		Timestamp: at,
		Tick:      binary.LittleEndian.Uint32(payload[0:4]),
		Measured:  readFloat(payload[4:8]),
		Setpoint:  readFloat(payload[8:12]),
		Kp:        readFloat(payload[12:16]),
		Ki:        readFloat(payload[16:20]),
		Kd:        readFloat(payload[20:24]),
	}
	if !finite(sample.Measured, sample.Setpoint, sample.Kp, sample.Ki, sample.Kd) {
		return nil, ErrNonFinite
	}
	return sample, nil
}

// EncodeSample builds an inbound frame, as the firmware would send it.
func (c Codec) EncodeSample(s *types.Sample) []byte {
	payload := make([]byte, InboundPayloadLen)
	binary.LittleEndian.PutUint32(payload[0:4], s.Tick)
	putFloat(payload[4:8], s.Measured)
	putFloat(payload[8:12], s.Setpoint)
	putFloat(payload[12:16], s.Kp)
	putFloat(payload[16:20], s.Ki)
	putFloat(payload[20:24], s.Kd)
	return c.wrap(payload)
}

// EncodeGains builds the outbound frame that updates the device. NaN and
// Inf are refused, the firmware would echo them back in every frame.
func (c Codec) EncodeGains(g types.Gains) ([]byte, error) {
	if !g.Finite() {
		return nil, ErrNonFinite
	}
	payload := make([]byte, OutboundPayloadLen)
	putFloat(payload[0:4], g.Kp)
	putFloat(payload[4:8], g.Ki)
	putFloat(payload[8:12], g.Kd)
	putFloat(payload[12:16], g.Setpoint)
	return c.wrap(payload), nil
}

// DecodeGains is the firmware side of EncodeGains.
func (c Codec) DecodeGains(b []byte) (types.Gains, error) {
	payload, err := c.unwrap(b, OutboundPayloadLen)
	if err != nil {
		return types.Gains{}, err
	}
	g := types.Gains{
		Kp:       readFloat(payload[0:4]),
		Ki:       readFloat(payload[4:8]),
		Kd:       readFloat(payload[8:12]),
		Setpoint: readFloat(payload[12:16]),
	}
	if !g.Finite() {
		return types.Gains{}, ErrNonFinite
	}
	return g, nil
}

func (c Codec) wrap(payload []byte) []byte {
	frame := make([]byte, 0, c.frameLen(len(payload)))
	frame = append(frame, Marker...)
	frame = append(frame, payload...)
	if c.Checksum {
		frame = binary.LittleEndian.AppendUint16(frame, crc16.Checksum(frame, crcTable))
	}
	return frame
}

func (c Codec) unwrap(b []byte, payloadLen int) ([]byte, error) {
	frameLen := c.frameLen(payloadLen)
	if len(b) < frameLen {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrShortFrame, len(b), frameLen)
	}
	if !bytes.HasPrefix(b, []byte(Marker)) {
		return nil, ErrBadMarker
	}
	body := b[:len(Marker)+payloadLen]
	if c.Checksum {
		given := binary.LittleEndian.Uint16(b[len(body):frameLen])
		if calc := crc16.Checksum(body, crcTable); calc != given {
			return nil, fmt.Errorf("%w: got %04X, calculated %04X", ErrBadChecksum, given, calc)
		}
	}
	return body[len(Marker):], nil
}

func readFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func finite(values ...float32) bool {
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
