// Package wire implements the codec for the macropad's fixed-size HID
// reports: 8-byte communication reports going out, and the typed messages
// the device sends back. The codec is pure; it performs no I/O.
package wire

import (
	"fmt"
)

// Report layout constants.
const (
	// CommandReportSize is the size of one communication report body:
	// [command id:1][params:6][counter:1].
	CommandReportSize = 8

	// ReportIDCommunication prefixes communication reports on the wire.
	ReportIDCommunication byte = 1

	// ReportIDTransfer prefixes file-transfer reports on the wire.
	ReportIDTransfer byte = 2
)

// Outbound command identifiers.
const (
	CmdSetLed        byte = 0x01
	CmdPrepareUpdate byte = 0xE0
	CmdReset         byte = 0xE1
	CmdUpdateConfig  byte = 0xE2
	CmdPing          byte = 0xF0
)

// Command is one outbound communication report. Encode produces the 8-byte
// report body; the trailing counter byte is stamped by the device engine so
// the firmware can deduplicate and order incoming reports.
type Command interface {
	fmt.Stringer

	Encode(counter byte) [CommandReportSize]byte
}

// LedColor names one of the colors the keypad LEDs support.
type LedColor string

const (
	ColorRed     LedColor = "red"
	ColorGreen   LedColor = "green"
	ColorBlue    LedColor = "blue"
	ColorWhite   LedColor = "white"
	ColorBlack   LedColor = "black"
	ColorYellow  LedColor = "yellow"
	ColorCyan    LedColor = "cyan"
	ColorMagenta LedColor = "magenta"
	ColorOrange  LedColor = "orange"
	ColorPurple  LedColor = "purple"
)

// Colors lists the color names SetLed accepts, black meaning off.
func Colors() []LedColor {
	return []LedColor{
		ColorRed, ColorGreen, ColorBlue, ColorWhite, ColorBlack,
		ColorYellow, ColorCyan, ColorMagenta, ColorOrange, ColorPurple,
	}
}

// Known reports whether the name maps to a supported color.
func (c LedColor) Known() bool {
	return c == ColorBlack || c.rgbw() != [4]byte{}
}

// rgbw returns the raw RGBW quadruplet the firmware expects for a color.
// Unknown colors map to black (off).
func (c LedColor) rgbw() [4]byte {
	switch c {
	case ColorRed:
		return [4]byte{0x0A, 0x00, 0x00, 0x00}
	case ColorGreen:
		return [4]byte{0x00, 0x0A, 0x00, 0x00}
	case ColorBlue:
		return [4]byte{0x00, 0x00, 0x0A, 0x00}
	case ColorWhite:
		return [4]byte{0x00, 0x00, 0x00, 0x0A}
	case ColorYellow:
		return [4]byte{0x0A, 0x0A, 0x00, 0x00}
	case ColorCyan:
		return [4]byte{0x00, 0x0A, 0x0A, 0x00}
	case ColorMagenta:
		return [4]byte{0x0A, 0x00, 0x0A, 0x00}
	case ColorOrange:
		return [4]byte{0x0A, 0x08, 0x00, 0x00}
	case ColorPurple:
		return [4]byte{0x09, 0x00, 0x09, 0x00}
	default:
		return [4]byte{}
	}
}

// SetLed sets the color of a single keypad LED.
type SetLed struct {
	LED   uint8
	Color LedColor
}

func (s SetLed) Encode(counter byte) [CommandReportSize]byte {
	color := s.Color.rgbw()
	return [CommandReportSize]byte{
		CmdSetLed, s.LED, color[0], color[1], color[2], color[3], 0, counter,
	}
}

func (s SetLed) String() string {
	return fmt.Sprintf("SetLed{led: %d, color: %s}", s.LED, s.Color)
}

// UpdateConfig toggles device-side debug facilities. Each setting is
// tri-state on the wire: 0 leaves it untouched, 1 disables, 2 enables.
type UpdateConfig struct {
	serialConsole uint8
	filesystem    uint8
}

// NewUpdateConfig returns an UpdateConfig that changes nothing until one of
// the With methods is applied.
func NewUpdateConfig() UpdateConfig {
	return UpdateConfig{}
}

// WithSerialConsole requests the device serial console be switched on or off.
func (u UpdateConfig) WithSerialConsole(enable bool) UpdateConfig {
	if enable {
		u.serialConsole = 2
	} else {
		u.serialConsole = 1
	}
	return u
}

// WithFilesystem requests the device mass-storage filesystem be switched on or off.
func (u UpdateConfig) WithFilesystem(enable bool) UpdateConfig {
	if enable {
		u.filesystem = 2
	} else {
		u.filesystem = 1
	}
	return u
}

func (u UpdateConfig) Encode(counter byte) [CommandReportSize]byte {
	return [CommandReportSize]byte{
		CmdUpdateConfig, u.serialConsole, u.filesystem, 0, 0, 0, 0, counter,
	}
}

func (u UpdateConfig) String() string {
	return fmt.Sprintf("UpdateConfig{serialConsole: %d, filesystem: %d}", u.serialConsole, u.filesystem)
}

// simple is a parameterless command carrying only its identifier.
type simple struct {
	id   byte
	name string
}

func (s simple) Encode(counter byte) [CommandReportSize]byte {
	return [CommandReportSize]byte{s.id, 0, 0, 0, 0, 0, 0, counter}
}

func (s simple) String() string { return s.name }

// Ping is the keep-alive command.
func Ping() Command { return simple{id: CmdPing, name: "Ping"} }

// PrepareUpdate switches the device into firmware-update mode.
func PrepareUpdate() Command { return simple{id: CmdPrepareUpdate, name: "PrepareUpdate"} }

// Reset reboots the device.
func Reset() Command { return simple{id: CmdReset, name: "Reset"} }
