package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/macropad-io/macropad/cmd/macropadd/app/options"
	"github.com/macropad-io/macropad/pkg/app"
	"github.com/macropad-io/macropad/pkg/log"
)

const (
	commandName = "macropadd"
	commandDesc = `The macropad daemon keeps a USB HID connection to the keypad open,
reconnecting whenever the device is unplugged, and answers its keep-alive
and status traffic. Button events are logged and Prometheus metrics are
served while the daemon runs.`
)

func NewApp() *app.App {
	opts := options.NewDaemonOptions()
	application := app.NewApp(
		commandName,
		"Launch the macropad host daemon",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.DaemonOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		d, err := cfg.NewDaemon()
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		return d.Run(ctx)
	}
}
