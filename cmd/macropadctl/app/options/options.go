package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/macropad-io/macropad/pkg/app"
	"github.com/macropad-io/macropad/pkg/log"
	"github.com/macropad-io/macropad/pkg/options"
	"github.com/macropad-io/macropad/pkg/util/errs"
)

type CtlOptions struct {
	HidOptions    *options.HidOptions    `json:"hid" mapstructure:"hid"`
	UpdateOptions *options.UpdateOptions `json:"update" mapstructure:"update"`
	Log           *log.Options           `json:"log" mapstructure:"log"`

	// Timeout bounds one invocation end to end, including the wait for the
	// device to show up.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

var _ app.CliOptions = (*CtlOptions)(nil)

func NewCtlOptions() *CtlOptions {
	return &CtlOptions{
		HidOptions:    options.NewHidOptions(),
		UpdateOptions: options.NewUpdateOptions(),
		Log:           log.NewOptions(),
		Timeout:       30 * time.Second,
	}
}

func (o *CtlOptions) AddFlags(fs *pflag.FlagSet) {
	o.HidOptions.AddFlags(fs)
	o.UpdateOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Give up if the invocation has not finished after this long (0 to wait forever).")
}

func (o *CtlOptions) Complete() error {
	return nil
}

func (o *CtlOptions) Validate() error {
	errors := []error{}
	errors = append(errors, o.HidOptions.Validate()...)
	errors = append(errors, o.UpdateOptions.Validate()...)
	errors = append(errors, o.Log.Validate()...)
	if o.Timeout < 0 {
		errors = append(errors, fmt.Errorf("timeout must not be negative"))
	}
	return errs.Aggregate(errors)
}
