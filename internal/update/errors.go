package update

import (
	"fmt"
)

// DeviceError indicates the device rejected the update with an ER report.
// Reason carries the device's text verbatim.
type DeviceError struct {
	Reason string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device reported update error: %s", e.Reason)
}

// AckTimeoutError indicates a chunk was never acknowledged, even after
// resending it.
type AckTimeoutError struct {
	Chunk    ChunkType
	FileID   uint16
	Package  uint16
	Attempts int
}

func (e *AckTimeoutError) Error() string {
	return fmt.Sprintf("no acknowledgment for %s chunk (file %d, package %d) after %d attempts",
		e.Chunk, e.FileID, e.Package, e.Attempts)
}

// ProtocolViolationError indicates the device acknowledged a chunk other
// than the one in flight.
type ProtocolViolationError struct {
	Want Chunk
	Got  string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("unexpected acknowledgment while sending %s chunk (file %d, package %d): %s",
		e.Want.Type, e.Want.FileID, e.Want.Package, e.Got)
}

// AbortedError wraps the cause that moved an update run into its terminal
// aborted state.
type AbortedError struct {
	Cause error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("update aborted: %v", e.Cause)
}

func (e *AbortedError) Unwrap() error { return e.Cause }
