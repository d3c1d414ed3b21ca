package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Inbound message identifiers. Binary identifiers share the first body byte
// with the two-character ASCII identifiers used by the update channel; the
// value ranges do not overlap.
const (
	msgStatus        byte = 0x01
	msgStatusRequest byte = 0x02
	msgVersionInfo   byte = 0x99
)

// ErrTruncated reports an inbound report shorter than its minimum size.
var ErrTruncated = errors.New("wire: truncated report")

// Message is one decoded inbound report. The set of implementations is
// closed; messages are produced only by Decode.
type Message interface {
	message()
}

// Status reports a button event.
type Status struct {
	Button      uint8
	Triggered   bool
	Longpressed bool
	Pressed     bool
	Released    bool
}

func (Status) message() {}

func (s Status) String() string {
	return fmt.Sprintf("Status{button: %d, triggered: %t, longpress: %t, pressed: %t, released: %t}",
		s.Button, s.Triggered, s.Longpressed, s.Pressed, s.Released)
}

// HardwareType identifies the keypad variant reported in VersionInfo.
type HardwareType uint8

const (
	HardwareUnknown         HardwareType = 0x00
	HardwareFiveButtonUSBV1 HardwareType = 0x02
	HardwareFiveButtonUSB   HardwareType = 0x03
	HardwareFiveButtonBT    HardwareType = 0x04
	HardwareTenButtonUSB    HardwareType = 0x05
	HardwareTenButtonBT     HardwareType = 0x06
)

func (h HardwareType) String() string {
	switch h {
	case HardwareFiveButtonUSBV1:
		return "five button USB v1"
	case HardwareFiveButtonUSB:
		return "five button USB"
	case HardwareFiveButtonBT:
		return "five button BT"
	case HardwareTenButtonUSB:
		return "ten button USB"
	case HardwareTenButtonBT:
		return "ten button BT"
	default:
		return "unknown"
	}
}

// VersionInfo reports the firmware version and hardware variant.
type VersionInfo struct {
	Major    uint8
	Minor    uint8
	Patch    uint8
	Hardware HardwareType
}

func (VersionInfo) message() {}

// Version returns the firmware version as a dotted triplet.
func (v VersionInfo) Version() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// StatusRequest asks the host to resend the full LED state.
type StatusRequest struct{}

func (StatusRequest) message() {}

// ChunkAck confirms receipt of one transfer chunk, correlated by file id,
// package index and chunk type.
type ChunkAck struct {
	FileID  uint16
	Package uint16
	Type    uint8
}

func (ChunkAck) message() {}

func (a ChunkAck) String() string {
	return fmt.Sprintf("ChunkAck{file: %d, package: %d, type: %d}", a.FileID, a.Package, a.Type)
}

// UpdateError carries a device-reported update failure reason.
type UpdateError struct {
	Reason string
}

func (UpdateError) message() {}

// LogLevel is the severity of a device log message.
type LogLevel uint8

const (
	LogDebug LogLevel = iota
	LogError
)

// DeviceLog is a log line emitted by the device firmware.
type DeviceLog struct {
	Level LogLevel
	Text  string
}

func (DeviceLog) message() {}

// Unknown wraps a well-formed report whose identifier the host does not
// recognize. Kept for forward compatibility with newer firmware.
type Unknown struct {
	Raw []byte
}

func (Unknown) message() {}

// Decode parses one raw inbound report, including its leading report ID
// byte. It is total over the input-length domain: reports shorter than the
// two-byte minimum fail with ErrTruncated, unrecognized identifiers decode
// to Unknown, and no input panics.
func Decode(raw []byte) (Message, error) {
	if len(raw) < 2 {
		return nil, ErrTruncated
	}

	body := raw[1:] // raw[0] is the HID report ID

	switch body[0] {
	case msgStatus:
		if len(body) < 7 {
			return nil, ErrTruncated
		}
		return Status{
			Button:      body[1],
			Triggered:   body[2] != 0,
			Longpressed: body[3] != 0,
			Pressed:     body[4] != 0,
			Released:    body[5] != 0,
		}, nil
	case msgStatusRequest:
		return StatusRequest{}, nil
	case msgVersionInfo:
		if len(body) < 7 {
			return nil, ErrTruncated
		}
		return VersionInfo{
			Major:    body[1],
			Minor:    body[2],
			Patch:    body[3],
			Hardware: HardwareType(body[4]),
		}, nil
	}

	// Update-channel messages use two-character ASCII identifiers.
	if len(body) >= 2 {
		switch string(body[:2]) {
		case "AK":
			return decodeChunkAck(body), nil
		case "ER":
			return decodeUpdateError(body), nil
		case "LD":
			return DeviceLog{Level: LogDebug, Text: textUntilNul(body[2:])}, nil
		case "LE":
			return DeviceLog{Level: LogError, Text: textUntilNul(body[2:])}, nil
		}
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	return Unknown{Raw: out}, nil
}

func decodeChunkAck(body []byte) ChunkAck {
	var ack ChunkAck
	if len(body) >= 4 {
		ack.FileID = binary.LittleEndian.Uint16(body[2:4])
	}
	if len(body) >= 6 {
		ack.Package = binary.LittleEndian.Uint16(body[4:6])
	}
	if len(body) >= 7 {
		ack.Type = body[6]
	}
	return ack
}

func decodeUpdateError(body []byte) UpdateError {
	if len(body) < 3 {
		return UpdateError{}
	}
	length := int(body[2])
	rest := body[3:]
	if length > len(rest) {
		length = len(rest)
	}
	reason := bytes.TrimRight(rest[:length], "\x00")
	return UpdateError{Reason: string(reason)}
}

func textUntilNul(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
