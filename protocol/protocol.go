// Package protocol implements the binary framing used by the TCP transport.
//
// The engine and codec are framing-agnostic; this layer only solves message
// boundaries on a byte stream. Each frame is a fixed 9-byte header followed
// by the serialized message:
//
//	0      3    4    5         9
//	┌──────┬────┬────┬─────────┬───────────────┐
//	│ crp  │ver │typ │ bodyLen │ body ...      │
//	└──────┴────┴────┴─────────┴───────────────┘
//
// Heartbeat frames carry no body and never reach the engine.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic0  byte = 'c'
	magic1  byte = 'r'
	magic2  byte = 'p'
	Version byte = 0x01

	// HeaderSize is 3 (magic) + 1 (version) + 1 (frame type) + 4 (bodyLen).
	HeaderSize = 9

	// MaxBodyLen rejects frames no sane peer would send; it protects the
	// reader from allocating on garbage input.
	MaxBodyLen = 16 << 20
)

// FrameType distinguishes message payloads from connection keepalives.
type FrameType byte

const (
	FrameData      FrameType = 0
	FrameHeartbeat FrameType = 1
)

// WriteFrame writes one complete frame to w. Callers sharing w across
// goroutines must serialize writes, otherwise frames interleave and corrupt
// the stream.
func WriteFrame(w io.Writer, ft FrameType, body []byte) error {
	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	buf[0], buf[1], buf[2] = magic0, magic1, magic2
	buf[3] = Version
	buf[4] = byte(ft)
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(body)))
	if _, err := w.Write(append(buf, body...)); err != nil {
		return err
	}
	return nil
}

// ReadFrame reads one complete frame from r, validating magic, version and
// frame type. io.ReadFull guarantees whole-frame reads on a stream.
func ReadFrame(r io.Reader) (FrameType, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	if header[0] != magic0 || header[1] != magic1 || header[2] != magic2 {
		return 0, nil, fmt.Errorf("protocol: invalid magic number: %x", header[0:3])
	}
	if header[3] != Version {
		return 0, nil, fmt.Errorf("protocol: unsupported version: %d", header[3])
	}
	ft := FrameType(header[4])
	if ft != FrameData && ft != FrameHeartbeat {
		return 0, nil, fmt.Errorf("protocol: unsupported frame type: %d", header[4])
	}
	bodyLen := binary.BigEndian.Uint32(header[5:9])
	if bodyLen > MaxBodyLen {
		return 0, nil, fmt.Errorf("protocol: frame of %d bytes exceeds limit", bodyLen)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return ft, body, nil
}
