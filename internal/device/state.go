// Package device maintains the link to a macropad: discovery, the
// reconnect loop, and the report traffic on an open handle.
package device

// ConnectionState is the externally visible link state. There is no
// intermediate "connecting" state; the supervisor retries until a handle
// opens or its context ends.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}
