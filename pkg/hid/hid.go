// Package hid abstracts the USB HID transport used to reach the macropad.
// It is the only package that touches hardware; everything above it works
// against the Device and Manager interfaces so tests can substitute fakes.
package hid

import (
	"time"
)

// Identification is a (vendor id, product id) pair used to locate candidate
// hardware. A connection attempt iterates a list of these in priority order.
type Identification struct {
	VendorID  uint16 `json:"vendor-id" mapstructure:"vendor-id"`
	ProductID uint16 `json:"product-id" mapstructure:"product-id"`
}

// Info describes an enumerated HID device.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
}

// Device is an open HID handle capable of report I/O.
//
// Exactly one goroutine may call ReadWithTimeout and one may call Write at
// any given time; the engine enforces this single-reader/single-writer rule.
type Device interface {
	// Write sends an output report. The first byte of p is the report ID.
	Write(p []byte) (int, error)

	// ReadWithTimeout reads an input report, returning 0 bytes when no data
	// arrives within the timeout.
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)

	Close() error

	// Info returns the descriptor of the opened device.
	Info() Info
}

// Manager enumerates and opens HID devices.
type Manager interface {
	// Open opens the first device matching the identification.
	Open(id Identification) (Device, error)

	// OpenMatching enumerates all devices and opens the first one for which
	// match returns true.
	OpenMatching(match func(Info) bool) (Device, error)

	// List returns descriptors for all currently attached HID devices.
	List() ([]Info, error)
}
