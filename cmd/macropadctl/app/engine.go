package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/macropad-io/macropad/cmd/macropadctl/app/options"
	"github.com/macropad-io/macropad/internal/device"
	"github.com/macropad-io/macropad/pkg/hid"
	"github.com/macropad-io/macropad/pkg/log"
)

// withEngine runs fn against a connected device engine and tears the
// session down when fn returns. The surrounding context carries the
// configured timeout and the usual signal handling.
func withEngine(opts *options.CtlOptions, fn func(ctx context.Context, e *device.Engine) error) error {
	log.Init(opts.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	manager := hid.NewManager()
	sup := device.NewSupervisor(manager, opts.HidOptions.Identifications(), opts.HidOptions.ReconnectInterval, log.Std())
	engine := device.New(sup, device.Config{
		PingPeriod:  opts.HidOptions.PingPeriod,
		ReadTimeout: opts.HidOptions.ReadTimeout,
	}, log.Std())

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopEngine := context.WithCancel(gctx)

	g.Go(func() error {
		err := engine.Run(runCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer stopEngine()
		return fn(gctx, engine)
	})

	err := g.Wait()
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("timed out waiting for the device")
	}
	return err
}
