package daemon

import (
	"github.com/macropad-io/macropad/internal/device"
	"github.com/macropad-io/macropad/pkg/hid"
	"github.com/macropad-io/macropad/pkg/log"
	"github.com/macropad-io/macropad/pkg/options"
)

type Config struct {
	HidOptions     *options.HidOptions
	MetricsOptions *options.MetricsOptions
}

func (cfg *Config) NewDaemon() (*Daemon, error) {
	manager := hid.NewManager()

	sup := device.NewSupervisor(manager, cfg.HidOptions.Identifications(), cfg.HidOptions.ReconnectInterval, log.Std())
	engine := device.New(sup, device.Config{
		PingPeriod:  cfg.HidOptions.PingPeriod,
		ReadTimeout: cfg.HidOptions.ReadTimeout,
	}, log.Std())

	return NewDaemon(engine, cfg.MetricsOptions), nil
}
