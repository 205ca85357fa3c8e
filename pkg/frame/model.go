// Package frame encodes and decodes the fixed binary frames exchanged with
// the balancing firmware over the Bluetooth serial link.
//
// Inbound:  "PID" | tick u32 | measured f32 | setpoint f32 | kp f32 | ki f32 | kd f32
// Outbound: "PID" | kp f32 | ki f32 | kd f32 | setpoint f32
//
// Everything is little-endian. With checksums enabled both directions carry a
// trailing CRC-16/ARC over marker and payload, also little-endian.
package frame

import "errors"

const (
	Marker             = "PID"
	InboundPayloadLen  = 24
	OutboundPayloadLen = 16
	ChecksumLen        = 2
)

var (
	ErrShortFrame  = errors.New("frame too short")
	ErrBadMarker   = errors.New("frame marker mismatch")
	ErrBadChecksum = errors.New("frame checksum mismatch")
	ErrNonFinite   = errors.New("frame contains non-finite value")
)

// Codec holds the layout options shared by both directions.
type Codec struct {
	Checksum bool
}
