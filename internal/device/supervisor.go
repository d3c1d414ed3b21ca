package device

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/macropad-io/macropad/internal/pkg/metrics"
	"github.com/macropad-io/macropad/pkg/hid"
	"github.com/macropad-io/macropad/pkg/log"
)

// fallbackProduct is matched case-insensitively against product strings
// when none of the configured identifications are present.
const fallbackProduct = "macropad"

const defaultRetryInterval = time.Second

// Supervisor owns device discovery and the blocking reconnect loop. It
// tries the configured identifications in priority order, or scans product
// strings when none are configured, retrying at a fixed interval until a
// handle opens or the context ends.
type Supervisor struct {
	manager    hid.Manager
	candidates []hid.Identification
	interval   time.Duration
	logger     log.Logger

	mu    sync.RWMutex
	state ConnectionState
}

// NewSupervisor builds a supervisor over the given manager. candidates are
// tried in order on every attempt.
func NewSupervisor(manager hid.Manager, candidates []hid.Identification, interval time.Duration, logger log.Logger) *Supervisor {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Supervisor{
		manager:    manager,
		candidates: candidates,
		interval:   interval,
		logger:     logger.WithName("supervisor"),
	}
}

// State returns the current link state.
func (s *Supervisor) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) setState(state ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if state == Connected {
		metrics.DeviceConnected.Set(1)
	} else {
		metrics.DeviceConnected.Set(0)
	}
}

// Connect blocks until a device opens or ctx ends. Every failed attempt is
// retried after the configured interval; attempts never back off further
// since the usual cause is simply an unplugged device.
func (s *Supervisor) Connect(ctx context.Context) (hid.Device, error) {
	strategy := backoff.WithContext(backoff.NewConstantBackOff(s.interval), ctx)

	notify := func(err error, wait time.Duration) {
		s.logger.Debug("no device found, retrying", "error", err.Error(), "wait", wait)
	}

	dev, err := backoff.RetryNotifyWithData(s.open, strategy, notify)
	if err != nil {
		return nil, err
	}

	info := dev.Info()
	s.setState(Connected)
	s.logger.Info("device connected",
		"vendor", info.VendorID, "product", info.ProductID,
		"name", info.Product, "serial", info.Serial)
	return dev, nil
}

// MarkDisconnected records the end of a session.
func (s *Supervisor) MarkDisconnected() {
	s.setState(Disconnected)
	s.logger.Info("device disconnected")
}

// open tries the configured identifications in order. The product-string
// scan is a fallback for hosts with no identifications configured; it never
// runs when an explicit list is set, so an override can not silently match
// some other device.
func (s *Supervisor) open() (hid.Device, error) {
	if len(s.candidates) == 0 {
		return s.manager.OpenMatching(func(info hid.Info) bool {
			return strings.Contains(strings.ToLower(info.Product), fallbackProduct)
		})
	}

	var lastErr error
	for _, id := range s.candidates {
		dev, err := s.manager.Open(id)
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
