package options

import (
	"github.com/spf13/pflag"

	"github.com/macropad-io/macropad/internal/daemon"
	"github.com/macropad-io/macropad/pkg/app"
	"github.com/macropad-io/macropad/pkg/log"
	"github.com/macropad-io/macropad/pkg/options"
	"github.com/macropad-io/macropad/pkg/util/errs"
)

type DaemonOptions struct {
	HidOptions     *options.HidOptions     `json:"hid" mapstructure:"hid"`
	MetricsOptions *options.MetricsOptions `json:"metrics" mapstructure:"metrics"`
	Log            *log.Options            `json:"log" mapstructure:"log"`
}

var _ app.CliOptions = (*DaemonOptions)(nil)

func NewDaemonOptions() *DaemonOptions {
	return &DaemonOptions{
		HidOptions:     options.NewHidOptions(),
		MetricsOptions: options.NewMetricsOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *DaemonOptions) AddFlags(fs *pflag.FlagSet) {
	o.HidOptions.AddFlags(fs)
	o.MetricsOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *DaemonOptions) Complete() error {
	return nil
}

func (o *DaemonOptions) Validate() error {
	errors := []error{}
	errors = append(errors, o.HidOptions.Validate()...)
	errors = append(errors, o.MetricsOptions.Validate()...)
	errors = append(errors, o.Log.Validate()...)
	return errs.Aggregate(errors)
}

func (o *DaemonOptions) Config() (*daemon.Config, error) {
	return &daemon.Config{
		HidOptions:     o.HidOptions,
		MetricsOptions: o.MetricsOptions,
	}, nil
}
