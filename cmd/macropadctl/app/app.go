package app

import (
	"github.com/macropad-io/macropad/cmd/macropadctl/app/options"
	"github.com/macropad-io/macropad/pkg/app"
)

const (
	commandName = "macropadctl"
	commandDesc = `macropadctl talks to a connected macropad keypad: list attached HID
devices, set LED colors, toggle device debug facilities, and push firmware
or configuration files. Every command waits for a device to appear, bounded
by --timeout.`
)

func NewApp() *app.App {
	opts := options.NewCtlOptions()
	application := app.NewApp(
		commandName,
		"Control a macropad keypad from the command line",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
	)

	application.Command().AddCommand(
		newDevicesCommand(opts),
		newPingCommand(opts),
		newLedCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
		newUpdateCommand(opts),
		newResetCommand(opts),
	)
	return application
}
