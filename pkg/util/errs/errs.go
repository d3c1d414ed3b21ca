// Package errs carries small error helpers shared by the binaries.
package errs

import (
	"errors"
)

// Aggregate joins validation errors into one, dropping nil entries.
// It returns nil when the list holds no real errors.
func Aggregate(list []error) error {
	return errors.Join(list...)
}
