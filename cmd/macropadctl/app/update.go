package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropad-io/macropad/cmd/macropadctl/app/options"
	"github.com/macropad-io/macropad/internal/device"
	"github.com/macropad-io/macropad/internal/update"
	"github.com/macropad-io/macropad/pkg/log"
)

func newUpdateCommand(opts *options.CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <file>...",
		Short: "Push firmware or configuration files to the device",
		Long: `Transfer one or more files to the device and reboot it into the new
state. Files are written under their base names; a name ending in ".delete"
removes the remaining name from the device filesystem instead.

The transfer is strictly sequential: each chunk must be acknowledged before
the next goes out, and a chunk that stays unacknowledged is resent a few
times before the whole run is aborted. An aborted run leaves the device
untouched until the next successful one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]update.File, 0, len(args))
			for _, path := range args {
				f, err := update.LoadFile(path)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			return withEngine(opts, func(ctx context.Context, e *device.Engine) error {
				engine := update.New(e, update.Config{
					AckTimeout:  opts.UpdateOptions.AckTimeout,
					MaxRetries:  opts.UpdateOptions.MaxRetries,
					SettleDelay: opts.UpdateOptions.SettleDelay,
				}, log.Std())

				if err := engine.Apply(ctx, files); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "transferred %d file(s), device rebooting\n", len(files))
				return nil
			})
		},
	}
}
