package options

import (
	"fmt"
	"net"
	"strconv"
)

// ValidateAddress checks that addr is a host:port with a valid port.
func ValidateAddress(addr string) error {
	if _, portStr, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%q is not a valid address: %w", addr, err)
	} else if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%q is not a valid address: port must be between 1 and 65535", addr)
	}
	return nil
}
