// macropadd is the host daemon for the macropad keypad. It keeps the HID
// link alive, logs device traffic, and exposes Prometheus metrics.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/macropad-io/macropad/cmd/macropadd/app"
)

func main() {
	app.NewApp().Run()
}
