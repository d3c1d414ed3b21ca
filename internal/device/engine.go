package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/macropad-io/macropad/internal/pkg/metrics"
	"github.com/macropad-io/macropad/internal/wire"
	"github.com/macropad-io/macropad/pkg/log"
)

const (
	defaultPingPeriod  = 4 * time.Second
	defaultReadTimeout = 100 * time.Millisecond
	defaultQueueSize   = 32

	readBufferSize = 64
)

// ErrUpdateInFlight is returned by ClaimUpdates while another update run
// holds the acknowledgment channel.
var ErrUpdateInFlight = errors.New("device: an update is already in flight")

// Config tunes the engine's timing. Zero fields take defaults.
type Config struct {
	// PingPeriod is the keep-alive interval. A ping goes out only when no
	// other command was written during the period.
	PingPeriod time.Duration
	// ReadTimeout is the poll interval of the receive loop; it bounds how
	// long shutdown and disconnect detection can lag.
	ReadTimeout time.Duration
	// QueueSize caps the number of outbound requests waiting for the
	// transmit loop.
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.PingPeriod <= 0 {
		c.PingPeriod = defaultPingPeriod
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	return c
}

// request is one queued outbound report. Exactly one of cmd and transfer is
// set. The counter is stamped when the request is enqueued, so the wire
// order of counters matches the order callers observed.
type request struct {
	cmd      wire.Command
	transfer []byte
	counter  byte
	done     chan error
}

// updateSink is the exclusive delivery channel of one update run.
type updateSink struct {
	ch     chan wire.Message
	closed bool
}

// Engine owns an open device handle's traffic: a receive loop, a transmit
// loop draining the FIFO send queue, and a keep-alive ticker. The queue and
// all registered callbacks survive reconnects; only the in-flight update is
// torn down when the link drops.
type Engine struct {
	sup    *Supervisor
	cfg    Config
	logger log.Logger

	sendCh chan *request

	counterMu sync.Mutex
	counter   byte

	cbMu      sync.RWMutex
	callbacks map[int]func(wire.Message)
	cbOrder   []int
	nextCbID  int

	sinkMu sync.Mutex
	sink   *updateSink

	// lastWrite is a unix-nano timestamp set by the transmit loop and read
	// by the keep-alive loop.
	lastWrite atomic.Int64
}

// New builds an engine over the supervisor's connections.
func New(sup *Supervisor, cfg Config, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg = cfg.withDefaults()
	return &Engine{
		sup:       sup,
		cfg:       cfg,
		logger:    logger.WithName("device"),
		sendCh:    make(chan *request, cfg.QueueSize),
		callbacks: make(map[int]func(wire.Message)),
	}
}

// State returns the current link state.
func (e *Engine) State() ConnectionState {
	return e.sup.State()
}

// RegisterCallback subscribes fn to inbound device messages. Callbacks run
// on the receive goroutine in registration order; the returned function
// removes the subscription.
func (e *Engine) RegisterCallback(fn func(wire.Message)) func() {
	e.cbMu.Lock()
	id := e.nextCbID
	e.nextCbID++
	e.callbacks[id] = fn
	e.cbOrder = append(e.cbOrder, id)
	e.cbMu.Unlock()

	return func() {
		e.cbMu.Lock()
		defer e.cbMu.Unlock()
		delete(e.callbacks, id)
		for i, cbID := range e.cbOrder {
			if cbID == id {
				e.cbOrder = append(e.cbOrder[:i], e.cbOrder[i+1:]...)
				break
			}
		}
	}
}

// ClaimUpdates reserves exclusive delivery of chunk acknowledgments and
// update errors. While claimed, those messages bypass the callbacks. The
// channel closes if the device disconnects; release must be called when
// the run ends.
func (e *Engine) ClaimUpdates() (<-chan wire.Message, func(), error) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if e.sink != nil {
		return nil, nil, ErrUpdateInFlight
	}

	sink := &updateSink{ch: make(chan wire.Message, 16)}
	e.sink = sink

	release := func() {
		e.sinkMu.Lock()
		defer e.sinkMu.Unlock()
		if e.sink == sink {
			e.sink = nil
		}
	}
	return sink.ch, release, nil
}

// Send queues a command and blocks until it is written to the device or ctx
// ends. The sequence counter is assigned here, so concurrent senders get
// wire order matching their enqueue order.
func (e *Engine) Send(ctx context.Context, cmd wire.Command) error {
	return e.enqueue(ctx, &request{cmd: cmd, counter: e.nextCounter(), done: make(chan error, 1)})
}

// SendTransfer queues a raw transfer report body and blocks until written.
func (e *Engine) SendTransfer(ctx context.Context, report []byte) error {
	body := append([]byte(nil), report...)
	return e.enqueue(ctx, &request{transfer: body, done: make(chan error, 1)})
}

func (e *Engine) enqueue(ctx context.Context, req *request) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.sendCh <- req:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-req.done:
		return err
	}
}

func (e *Engine) nextCounter() byte {
	e.counterMu.Lock()
	defer e.counterMu.Unlock()
	c := e.counter
	e.counter++
	return c
}

// Run connects and services the device until ctx ends. A dropped link tears
// down the session, marks the state disconnected, and goes straight back to
// the supervisor's connect loop; queued requests stay queued across the
// gap.
func (e *Engine) Run(ctx context.Context) error {
	for {
		dev, err := e.sup.Connect(ctx)
		if err != nil {
			return err
		}

		err = e.session(ctx, dev)
		if closeErr := dev.Close(); closeErr != nil {
			e.logger.Debug("closing device handle", "error", closeErr.Error())
		}
		e.sup.MarkDisconnected()
		e.abortClaimedUpdate()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("device session ended, reconnecting", "error", err.Error())
	}
}

// session runs the three duties over one handle and returns when any of
// them fails or ctx ends.
func (e *Engine) session(ctx context.Context, dev hidDevice) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return e.receiveLoop(ctx, dev) })
	g.Go(func() error { return e.transmitLoop(ctx, dev) })
	g.Go(func() error { return e.keepAliveLoop(ctx) })

	return g.Wait()
}

// hidDevice is the slice of hid.Device the engine loops need.
type hidDevice interface {
	Write(p []byte) (int, error)
	ReadWithTimeout(p []byte, timeout time.Duration) (int, error)
}

func (e *Engine) receiveLoop(ctx context.Context, dev hidDevice) error {
	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := dev.ReadWithTimeout(buf, e.cfg.ReadTimeout)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}

		msg, err := wire.Decode(buf[:n])
		if err != nil {
			metrics.DecodeErrors.Inc()
			e.logger.Debug("dropping undecodable report", "bytes", n, "error", err.Error())
			continue
		}
		e.dispatch(msg)
	}
}

func (e *Engine) dispatch(msg wire.Message) {
	switch m := msg.(type) {
	case wire.ChunkAck, wire.UpdateError:
		if e.deliverToSink(msg) {
			return
		}
	case wire.DeviceLog:
		if m.Level == wire.LogError {
			e.logger.Warn("device log", "text", m.Text)
		} else {
			e.logger.Debug("device log", "text", m.Text)
		}
	case wire.Unknown:
		e.logger.Debug("unknown report", "bytes", len(m.Raw))
	}

	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	for _, id := range e.cbOrder {
		e.callbacks[id](msg)
	}
}

// deliverToSink hands an acknowledgment to the claimed update run, if any.
func (e *Engine) deliverToSink(msg wire.Message) bool {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if e.sink == nil || e.sink.closed {
		return false
	}
	select {
	case e.sink.ch <- msg:
	default:
		e.logger.Warn("update sink full, dropping acknowledgment")
	}
	return true
}

func (e *Engine) abortClaimedUpdate() {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if e.sink != nil && !e.sink.closed {
		close(e.sink.ch)
		e.sink.closed = true
	}
}

func (e *Engine) transmitLoop(ctx context.Context, dev hidDevice) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.sendCh:
			err := e.write(dev, req)
			req.done <- err
			if err != nil {
				return err
			}
		}
	}
}

func (e *Engine) write(dev hidDevice, req *request) error {
	var (
		report []byte
		name   string
	)
	if req.cmd != nil {
		body := req.cmd.Encode(req.counter)
		report = append([]byte{wire.ReportIDCommunication}, body[:]...)
		name = req.cmd.String()
	} else {
		report = append([]byte{wire.ReportIDTransfer}, req.transfer...)
		name = "Transfer"
	}

	_, err := dev.Write(report)
	if req.cmd != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.CommandsSent.WithLabelValues(name, status).Inc()
	}
	if err != nil {
		return err
	}

	e.lastWrite.Store(time.Now().UnixNano())
	e.logger.Debug("report written", "command", name, "counter", req.counter)
	return nil
}

// keepAliveLoop pings on a fixed cadence, but only when the period passed
// with no other write. A busy link is its own keep-alive.
func (e *Engine) keepAliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			last := time.Unix(0, e.lastWrite.Load())
			if time.Since(last) < e.cfg.PingPeriod {
				continue
			}
			req := &request{cmd: wire.Ping(), counter: e.nextCounter(), done: make(chan error, 1)}
			select {
			case e.sendCh <- req:
			default:
				// Queue is busy; the traffic will keep the link alive.
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-req.done:
				if err != nil {
					e.logger.Debug("keep-alive write failed", "error", err.Error())
				}
			}
		}
	}
}
