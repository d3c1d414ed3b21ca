// macropadctl is the operator CLI for the macropad keypad: list devices,
// poke LEDs, and push firmware or configuration updates.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/macropad-io/macropad/cmd/macropadctl/app"
)

func main() {
	app.NewApp().Run()
}
