package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/macropad-io/macropad/cmd/macropadctl/app/options"
	"github.com/macropad-io/macropad/internal/device"
	"github.com/macropad-io/macropad/internal/wire"
	"github.com/macropad-io/macropad/pkg/hid"
	"github.com/macropad-io/macropad/pkg/log"
)

func newDevicesCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached HID devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(opts.Log)

			infos, err := hid.NewManager().List()
			if err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("VENDOR", "PRODUCT", "NAME", "MANUFACTURER", "SERIAL", "PATH")
			for _, info := range infos {
				table.AddRow(
					fmt.Sprintf("%04x", info.VendorID),
					fmt.Sprintf("%04x", info.ProductID),
					info.Product,
					info.Manufacturer,
					info.Serial,
					info.Path,
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newPingCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a keep-alive ping to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				if err := e.Send(ctx, wire.Ping()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ping written")
				return nil
			})
		},
	}
}

func newLedCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "led <led> <color>",
		Short: "Set the color of one keypad LED",
		Long: fmt.Sprintf("Set the color of one keypad LED.\n\nSupported colors: %v",
			wire.Colors()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("led index %q is not a number between 0 and 255", args[0])
			}
			color := wire.LedColor(args[1])
			if !color.Known() {
				return fmt.Errorf("unknown color %q, supported: %v", args[1], wire.Colors())
			}

			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				return e.Send(ctx, wire.SetLed{LED: uint8(led), Color: color})
			})
		},
	}
}

func newConfigCommand(opts *options.CtlOptions) *cobra.Command {
	var serialConsole, filesystem string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Toggle device debug facilities",
		Long: `Enable or disable the device's serial console and the USB mass-storage
view of its filesystem. Settings not given on the command line stay
untouched; changes take effect after the device reboots.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.NewUpdateConfig()

			if serialConsole != "" {
				enable, err := strconv.ParseBool(serialConsole)
				if err != nil {
					return fmt.Errorf("--serial-console wants true or false, got %q", serialConsole)
				}
				cfg = cfg.WithSerialConsole(enable)
			}
			if filesystem != "" {
				enable, err := strconv.ParseBool(filesystem)
				if err != nil {
					return fmt.Errorf("--filesystem wants true or false, got %q", filesystem)
				}
				cfg = cfg.WithFilesystem(enable)
			}
			if serialConsole == "" && filesystem == "" {
				return fmt.Errorf("nothing to change, pass --serial-console or --filesystem")
			}

			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				return e.Send(ctx, cfg)
			})
		},
	}

	cmd.Flags().StringVar(&serialConsole, "serial-console", "", "Enable (true) or disable (false) the serial console.")
	cmd.Flags().StringVar(&filesystem, "filesystem", "", "Enable (true) or disable (false) the filesystem over USB.")
	return cmd
}

func newVersionCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Report the firmware version of the connected device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				// The device announces its version right after the link
				// opens; wait for the first announcement.
				got := make(chan wire.VersionInfo, 1)
				remove := e.RegisterCallback(func(msg wire.Message) {
					if v, ok := msg.(wire.VersionInfo); ok {
						select {
						case got <- v:
						default:
						}
					}
				})
				defer remove()

				select {
				case <-ctx.Done():
					return ctx.Err()
				case v := <-got:
					fmt.Fprintf(cmd.OutOrStdout(), "firmware %s on %s hardware\n", v.Version(), v.Hardware)
					return nil
				}
			})
		},
	}
}

func newResetCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reboot the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				if err := e.Send(ctx, wire.Reset()); err != nil {
					return err
				}
				// Give the write a moment to drain before the handle drops.
				select {
				case <-ctx.Done():
				case <-time.After(100 * time.Millisecond):
				}
				fmt.Fprintln(cmd.OutOrStdout(), "device rebooting")
				return nil
			})
		},
	}
}
