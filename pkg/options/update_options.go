package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*UpdateOptions)(nil)

// UpdateOptions contains configuration for the pacing of update runs.
type UpdateOptions struct {
	AckTimeout  time.Duration `json:"ack-timeout" mapstructure:"ack-timeout"`
	MaxRetries  int           `json:"max-retries" mapstructure:"max-retries"`
	SettleDelay time.Duration `json:"settle-delay" mapstructure:"settle-delay"`
}

// NewUpdateOptions creates a new UpdateOptions with default values.
func NewUpdateOptions() *UpdateOptions {
	return &UpdateOptions{
		AckTimeout:  2 * time.Second,
		MaxRetries:  3,
		SettleDelay: 500 * time.Millisecond,
	}
}

// Validate is used to parse and validate the parameters entered by the user
// at the command line when the program starts.
func (o *UpdateOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.AckTimeout <= 0 {
		errors = append(errors, fmt.Errorf("update.ack-timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("update.max-retries must not be negative"))
	}
	if o.SettleDelay < 0 {
		errors = append(errors, fmt.Errorf("update.settle-delay must not be negative"))
	}

	return errors
}

// AddFlags adds flags for UpdateOptions to the specified FlagSet.
func (o *UpdateOptions) AddFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.AckTimeout, "update.ack-timeout", o.AckTimeout, "How long to wait for a chunk acknowledgment before resending.")
	fs.IntVar(&o.MaxRetries, "update.max-retries", o.MaxRetries, "Resends of one chunk before the update fails.")
	fs.DurationVar(&o.SettleDelay, "update.settle-delay", o.SettleDelay, "Pause after announcing and after finishing a transfer.")
}
