// Package protocol defines the wire format shared by the screen, control
// and file channels: a leading version byte per connection, the 8-byte
// frame-packet header, length-delimited JSON control commands, and the
// file-transfer header. All multi-byte integers are big-endian.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Version is written as the first byte on every channel so the format can
// evolve without silently misparsing an older peer.
const Version byte = 1

const (
	frameHeaderSize = 8

	// MaxFrameSize caps a single compressed frame payload. A full 4K
	// RGBA bitmap compresses far below this.
	MaxFrameSize = 64 << 20

	// MaxCommandSize caps one control command record.
	MaxCommandSize = 64 << 10

	// MaxNameLen caps the filename field of a file-transfer header.
	MaxNameLen = 4096
)

// ErrMalformedCommand marks a command whose bytes arrived intact but did
// not decode. The connection can keep reading the next record.
var ErrMalformedCommand = errors.New("malformed control command")

// WriteVersion sends the channel version byte.
func WriteVersion(w io.Writer) error {
	_, err := w.Write([]byte{Version})
	return err
}

// ExpectVersion reads one byte and verifies it matches Version.
func ExpectVersion(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if b[0] != Version {
		return fmt.Errorf("protocol version mismatch: got %d, want %d", b[0], Version)
	}
	return nil
}

// MarshalFrame builds one frame packet: [payload_length:u32][scale_percent:u32][payload].
// The header and payload are returned as a single buffer so a broadcast is
// one write per viewer.
func MarshalFrame(payload []byte, scalePercent uint32) []byte {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], scalePercent)
	copy(buf[frameHeaderSize:], payload)
	return buf
}

// WriteFrame writes one frame packet to w.
func WriteFrame(w io.Writer, payload []byte, scalePercent uint32) error {
	_, err := w.Write(MarshalFrame(payload, scalePercent))
	return err
}

// ReadFrame reads exactly one frame packet, accumulating partial reads
// until the full payload has arrived. A zero payload_length is a valid
// empty frame and returns an empty payload without blocking.
func ReadFrame(r io.Reader) (payload []byte, scalePercent uint32, err error) {
	var hdr [frameHeaderSize]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return nil, 0, err
	}
	size := binary.BigEndian.Uint32(hdr[0:4])
	scalePercent = binary.BigEndian.Uint32(hdr[4:8])
	if size > MaxFrameSize {
		return nil, 0, fmt.Errorf("frame payload too large: %d bytes", size)
	}
	if size == 0 {
		return []byte{}, scalePercent, nil
	}
	payload = make([]byte, size)
	if _, err = io.ReadFull(r, payload); err != nil {
		return nil, 0, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, scalePercent, nil
}

// Control command vocabulary. Field names match the JSON records on the
// wire, one record per logical send.
const (
	CmdMouseMove   = "mouse_move"
	CmdMouseClick  = "mouse_click"
	CmdMouseScroll = "mouse_scroll"
	CmdKey         = "key"
)

const (
	ActionPress   = "press"
	ActionRelease = "release"
)

// Command is one tagged input-event record. Coordinates are in
// source-screen pixel space.
type Command struct {
	Type   string `json:"type"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Button string `json:"button,omitempty"`
	Action string `json:"action,omitempty"`
	DX     int    `json:"dx,omitempty"`
	DY     int    `json:"dy,omitempty"`
	Key    string `json:"key,omitempty"`
}

// WriteCommand serializes cmd as a length-prefixed JSON record and writes
// it in a single call.
func WriteCommand(w io.Writer, cmd *Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], data)
	_, err = w.Write(buf)
	return err
}

// ReadCommand reads one length-prefixed command record. Records that
// arrived intact but do not decode return ErrMalformedCommand; the stream
// stays in sync and the caller may keep reading. Any other error means the
// connection is unusable.
func ReadCommand(r io.Reader) (*Command, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > MaxCommandSize {
		return nil, fmt.Errorf("control command too large: %d bytes", size)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedCommand)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read command payload: %w", err)
	}
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return &cmd, nil
}

// WriteFileHeader writes [name_length:u32][file_length:u32][name bytes].
// The file content follows, streamed by the caller.
func WriteFileHeader(w io.Writer, name string, size uint32) error {
	nameBytes := []byte(name)
	if len(nameBytes) > MaxNameLen {
		return fmt.Errorf("filename too long: %d bytes", len(nameBytes))
	}
	buf := make([]byte, 8+len(nameBytes))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(nameBytes)))
	binary.BigEndian.PutUint32(buf[4:8], size)
	copy(buf[8:], nameBytes)
	_, err := w.Write(buf)
	return err
}

// ReadFileHeader reads a file-transfer header.
func ReadFileHeader(r io.Reader) (name string, size uint32, err error) {
	var hdr [8]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return "", 0, fmt.Errorf("read file header: %w", err)
	}
	nameLen := binary.BigEndian.Uint32(hdr[0:4])
	size = binary.BigEndian.Uint32(hdr[4:8])
	if nameLen == 0 || nameLen > MaxNameLen {
		return "", 0, fmt.Errorf("bad filename length: %d", nameLen)
	}
	nameBytes := make([]byte, nameLen)
	if _, err = io.ReadFull(r, nameBytes); err != nil {
		return "", 0, fmt.Errorf("read filename: %w", err)
	}
	return string(nameBytes), size, nil
}
