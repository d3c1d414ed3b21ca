package update

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/macropad-io/macropad/internal/pkg/metrics"
	fsmutil "github.com/macropad-io/macropad/internal/pkg/util/fsm"
	"github.com/macropad-io/macropad/internal/wire"
	"github.com/macropad-io/macropad/pkg/log"
)

// Update run states.
const (
	StateIdle         = "Idle"
	StatePreparing    = "Preparing"
	StateTransferring = "Transferring"
	StateFinalizing   = "Finalizing"
	StateResetting    = "Resetting"
	StateAborted      = "Aborted"
)

const (
	// EventPrepare tells the device an update is coming.
	EventPrepare = "event_prepare"
	// EventTransfer starts streaming file chunks.
	EventTransfer = "event_transfer"
	// EventFinalize marks all files as transferred.
	EventFinalize = "event_finalize"
	// EventReset asks the device to reboot into the new state.
	EventReset = "event_reset"
	// EventComplete closes a successful run, returning to Idle.
	EventComplete = "event_complete"
	// EventAbort is terminal; an aborted run cannot be resumed.
	EventAbort = "event_abort"
)

// Sender is the slice of the device engine an update run needs: command and
// transfer writes, plus exclusive delivery of acknowledgment traffic.
type Sender interface {
	Send(ctx context.Context, cmd wire.Command) error
	SendTransfer(ctx context.Context, report []byte) error
	ClaimUpdates() (<-chan wire.Message, func(), error)
}

// Config tunes the pacing of an update run. Zero fields take defaults.
type Config struct {
	// AckTimeout bounds the wait for a chunk acknowledgment before a
	// resend.
	AckTimeout time.Duration
	// MaxRetries is the number of resends of one chunk before the run
	// fails.
	MaxRetries int
	// SettleDelay gives the device time to react after PrepareUpdate and
	// after the final Completed chunk.
	SettleDelay time.Duration
}

const (
	defaultAckTimeout  = 2 * time.Second
	defaultMaxRetries  = 3
	defaultSettleDelay = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.AckTimeout <= 0 {
		c.AckTimeout = defaultAckTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	return c
}

// Engine runs one update at a time against a connected device. Exactly one
// chunk is in flight at any moment; the next chunk goes out only after the
// previous one is acknowledged.
type Engine struct {
	sender  Sender
	cfg     Config
	logger  log.Logger
	machine *fsm.FSM
}

// New builds an update engine over the given sender.
func New(sender Sender, cfg Config, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	e := &Engine{
		sender: sender,
		cfg:    cfg.withDefaults(),
		logger: logger.WithName("update"),
	}

	events := fsm.Events{
		{Name: EventPrepare, Src: []string{StateIdle}, Dst: StatePreparing},
		{Name: EventTransfer, Src: []string{StatePreparing}, Dst: StateTransferring},
		{Name: EventFinalize, Src: []string{StateTransferring}, Dst: StateFinalizing},
		{Name: EventReset, Src: []string{StateFinalizing}, Dst: StateResetting},
		{Name: EventComplete, Src: []string{StateResetting}, Dst: StateIdle},

		{Name: EventAbort, Src: []string{StatePreparing, StateTransferring, StateFinalizing, StateResetting}, Dst: StateAborted},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(e.actionLogTransition),
	}

	e.machine = fsm.NewFSM(StateIdle, events, callbacks)
	return e
}

// State returns the current run state.
func (e *Engine) State() string {
	return e.machine.Current()
}

func (e *Engine) actionLogTransition(ctx context.Context, event *fsm.Event) error {
	e.logger.Debug("state transition", "from", event.Src, "to", event.Dst)
	return nil
}

// Apply transfers the given files to the device and reboots it. A
// successful run returns the engine to Idle, ready for the next one. Any
// failure is terminal for this engine instance; a fresh Engine is needed
// for a new attempt.
func (e *Engine) Apply(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return errors.New("update: no files to transfer")
	}
	if e.machine.Current() != StateIdle {
		return fmt.Errorf("update: engine is not idle, state is %s", e.machine.Current())
	}

	updates, release, err := e.sender.ClaimUpdates()
	if err != nil {
		return err
	}
	defer release()

	if err := e.run(ctx, updates, files); err != nil {
		if abortErr := e.machine.Event(ctx, EventAbort); abortErr != nil && !fsmutil.IsNoTransition(abortErr) {
			e.logger.Error(abortErr, "abort transition failed")
		}
		metrics.UpdatesTotal.WithLabelValues(updateResult(err)).Inc()
		e.logger.Error(err, "update aborted")
		return &AbortedError{Cause: err}
	}

	metrics.UpdatesTotal.WithLabelValues("success").Inc()
	e.logger.Info("update complete", "files", len(files))
	return nil
}

func (e *Engine) run(ctx context.Context, updates <-chan wire.Message, files []File) error {
	if err := e.machine.Event(ctx, EventPrepare); err != nil {
		return err
	}
	if err := e.prepare(ctx, updates); err != nil {
		return err
	}

	if err := e.machine.Event(ctx, EventTransfer); err != nil {
		return err
	}
	for i, f := range files {
		if err := e.transferFile(ctx, updates, uint16(i+1), f); err != nil {
			return err
		}
	}

	if err := e.machine.Event(ctx, EventFinalize); err != nil {
		return err
	}
	if err := e.finalize(ctx); err != nil {
		return err
	}

	if err := e.machine.Event(ctx, EventReset); err != nil {
		return err
	}
	if err := e.sender.Send(ctx, wire.Reset()); err != nil {
		return err
	}
	return e.machine.Event(ctx, EventComplete)
}

// prepare announces the update and waits out the settle delay, treating an
// ER report during that window as a rejection.
func (e *Engine) prepare(ctx context.Context, updates <-chan wire.Message) error {
	if err := e.sender.Send(ctx, wire.PrepareUpdate()); err != nil {
		return err
	}

	settle := time.NewTimer(e.cfg.SettleDelay)
	defer settle.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settle.C:
			return nil
		case msg, ok := <-updates:
			if !ok {
				return errors.New("device disconnected while preparing")
			}
			if er, isErr := msg.(wire.UpdateError); isErr {
				return &DeviceError{Reason: er.Reason}
			}
		}
	}
}

func (e *Engine) transferFile(ctx context.Context, updates <-chan wire.Message, fileID uint16, f File) error {
	chunks, err := f.chunks(fileID)
	if err != nil {
		return err
	}

	e.logger.Info("transferring file", "name", f.Name, "id", fileID, "chunks", len(chunks))
	for _, c := range chunks {
		if err := e.sendChunk(ctx, updates, c); err != nil {
			return err
		}
	}
	return nil
}

// sendChunk writes one chunk and blocks until the device acknowledges it.
// A missed acknowledgment resends the identical chunk up to MaxRetries
// times. Chunks are rebuilt from the same split, so a resend is
// byte-identical to the original write.
func (e *Engine) sendChunk(ctx context.Context, updates <-chan wire.Message, c Chunk) error {
	for attempt := 0; ; attempt++ {
		report := c.Encode()
		if err := e.sender.SendTransfer(ctx, report[:]); err != nil {
			return err
		}
		metrics.ChunksSent.WithLabelValues(c.Type.String()).Inc()

		done, err := e.awaitAck(ctx, updates, c)
		if err != nil || done {
			return err
		}
		if attempt >= e.cfg.MaxRetries {
			return &AckTimeoutError{Chunk: c.Type, FileID: c.FileID, Package: c.Package, Attempts: attempt + 1}
		}
		metrics.ChunkRetries.Inc()
		e.logger.Warn("acknowledgment timed out, resending chunk",
			"type", c.Type.String(), "file", c.FileID, "package", c.Package, "attempt", attempt+1)
	}
}

// awaitAck returns (true, nil) on a matching acknowledgment and
// (false, nil) when the wait timed out and the caller should resend.
func (e *Engine) awaitAck(ctx context.Context, updates <-chan wire.Message, c Chunk) (bool, error) {
	timer := time.NewTimer(e.cfg.AckTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		case msg, ok := <-updates:
			if !ok {
				return false, errors.New("device disconnected during transfer")
			}
			switch m := msg.(type) {
			case wire.ChunkAck:
				if !ValidateAck(c, m) {
					got := fmt.Sprintf("ack for file %d, package %d, type %d", m.FileID, m.Package, m.Type)
					return false, &ProtocolViolationError{Want: c, Got: got}
				}
				return true, nil
			case wire.UpdateError:
				return false, &DeviceError{Reason: m.Reason}
			default:
				// Device log lines and the like may interleave.
			}
		}
	}
}

// finalize sends the Completed chunk, which the device does not
// acknowledge, and waits out the settle delay before the reset.
func (e *Engine) finalize(ctx context.Context) error {
	report := CompletedChunk().Encode()
	if err := e.sender.SendTransfer(ctx, report[:]); err != nil {
		return err
	}
	metrics.ChunksSent.WithLabelValues(ChunkCompleted.String()).Inc()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.SettleDelay):
		return nil
	}
}

func updateResult(err error) string {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return "aborted"
	}
	return "failed"
}
