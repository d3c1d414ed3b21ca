// Package daemon wires the device engine into a long-running host process
// with a metrics endpoint.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/macropad-io/macropad/internal/device"
	"github.com/macropad-io/macropad/internal/pkg/metrics"
	"github.com/macropad-io/macropad/internal/wire"
	"github.com/macropad-io/macropad/pkg/log"
	"github.com/macropad-io/macropad/pkg/options"
)

type Daemon struct {
	engine  *device.Engine
	metrics *options.MetricsOptions
}

func NewDaemon(engine *device.Engine, metricsOpts *options.MetricsOptions) *Daemon {
	return &Daemon{engine: engine, metrics: metricsOpts}
}

// Run services the device until ctx ends.
func (d *Daemon) Run(ctx context.Context) error {
	log.Info("starting macropadd")

	remove := d.engine.RegisterCallback(d.handleMessage)
	defer remove()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.engine.Run(ctx) })

	if d.metrics != nil && d.metrics.Enabled {
		g.Go(func() error { return d.serveMetrics(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("macropadd shutting down")
		return nil
	}
	return err
}

// handleMessage logs device traffic the daemon has no other consumer for.
func (d *Daemon) handleMessage(msg wire.Message) {
	switch m := msg.(type) {
	case wire.Status:
		log.Info("button event",
			"button", m.Button,
			"triggered", m.Triggered,
			"longpressed", m.Longpressed,
			"pressed", m.Pressed,
			"released", m.Released)
	case wire.VersionInfo:
		log.Info("device version", "version", m.Version(), "hardware", m.Hardware.String())
	case wire.StatusRequest:
		log.Debug("device requested a status refresh")
	}
}

func (d *Daemon) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: d.metrics.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", d.metrics.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
