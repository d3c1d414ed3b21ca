// Package options defines the reusable flag groups shared by the macropad
// binaries.
package options

import (
	"github.com/spf13/pflag"
)

// IOptions is implemented by every flag group so applications can compose
// them uniformly.
type IOptions interface {
	// Validate is used to parse and validate the parameters entered by the
	// user at the command line when the program starts.
	Validate() []error

	// AddFlags adds the group's flags to the specified FlagSet.
	AddFlags(fs *pflag.FlagSet)
}
