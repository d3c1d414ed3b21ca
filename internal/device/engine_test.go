package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropad-io/macropad/internal/wire"
	"github.com/macropad-io/macropad/pkg/hid"
)

// fakeDevice feeds queued inbound reports to the receive loop and records
// everything written to it.
type fakeDevice struct {
	mu     sync.Mutex
	writes [][]byte

	inbound chan []byte
	failed  chan struct{} // closed to simulate an unplugged device
	once    sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		inbound: make(chan []byte, 16),
		failed:  make(chan struct{}),
	}
}

func (d *fakeDevice) fail() { d.once.Do(func() { close(d.failed) }) }

func (d *fakeDevice) Write(p []byte) (int, error) {
	select {
	case <-d.failed:
		return 0, errors.New("hid: device disconnected")
	default:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (d *fakeDevice) ReadWithTimeout(p []byte, timeout time.Duration) (int, error) {
	select {
	case <-d.failed:
		return 0, errors.New("hid: device disconnected")
	case report := <-d.inbound:
		return copy(p, report), nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) Info() hid.Info {
	return hid.Info{VendorID: 0x1189, ProductID: 0x8890, Product: "Macropad"}
}

func (d *fakeDevice) written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.writes...)
}

// fakeManager hands out a fixed sequence of devices, one per successful
// open.
type fakeManager struct {
	mu      sync.Mutex
	devices []hid.Device
}

func (m *fakeManager) add(dev hid.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, dev)
}

func (m *fakeManager) pop() (hid.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.devices) == 0 {
		return nil, errors.New("hid: no device")
	}
	dev := m.devices[0]
	m.devices = m.devices[1:]
	return dev, nil
}

func (m *fakeManager) Open(id hid.Identification) (hid.Device, error) { return m.pop() }

func (m *fakeManager) OpenMatching(match func(hid.Info) bool) (hid.Device, error) {
	return m.pop()
}

func (m *fakeManager) List() ([]hid.Info, error) { return nil, nil }

func startEngine(t *testing.T, manager hid.Manager, cfg Config) *Engine {
	t.Helper()
	sup := NewSupervisor(manager, []hid.Identification{{VendorID: 0x1189, ProductID: 0x8890}}, 10*time.Millisecond, nil)
	e := New(sup, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func waitForState(t *testing.T, e *Engine, want ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want },
		time.Second, 5*time.Millisecond, "state never became %s", want)
}

func TestSendPreservesOrderAndCounter(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{})
	waitForState(t, e, Connected)

	ctx := context.Background()
	require.NoError(t, e.Send(ctx, wire.SetLed{LED: 1, Color: "red"}))
	require.NoError(t, e.Send(ctx, wire.Ping()))
	require.NoError(t, e.Send(ctx, wire.PrepareUpdate()))

	writes := dev.written()
	require.Len(t, writes, 3)
	for i, wantCmd := range []byte{wire.CmdSetLed, wire.CmdPing, wire.CmdPrepareUpdate} {
		report := writes[i]
		require.Len(t, report, 1+wire.CommandReportSize)
		assert.Equal(t, byte(wire.ReportIDCommunication), report[0])
		assert.Equal(t, wantCmd, report[1])
		assert.Equal(t, byte(i), report[8], "sequence counter")
	}
}

func TestSendOrderSurvivesBusyKeepAlive(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{PingPeriod: time.Millisecond})
	waitForState(t, e, Connected)

	ctx := context.Background()
	want := []byte{wire.CmdSetLed, wire.CmdPrepareUpdate, wire.CmdUpdateConfig, wire.CmdReset}
	for i, cmd := range []wire.Command{
		wire.SetLed{LED: 1, Color: "red"},
		wire.PrepareUpdate(),
		wire.NewUpdateConfig().WithSerialConsole(true),
		wire.Reset(),
	} {
		require.NoError(t, e.Send(ctx, cmd), "command %d", i)
		time.Sleep(5 * time.Millisecond)
	}

	// Wait until the ticker has demonstrably fired in between.
	require.Eventually(t, func() bool {
		for _, report := range dev.written() {
			if report[1] == wire.CmdPing {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond, "keep-alive never interleaved")

	var cmds []byte
	var counters []byte
	for _, report := range dev.written() {
		require.Len(t, report, 1+wire.CommandReportSize)
		if report[1] == wire.CmdPing {
			continue
		}
		cmds = append(cmds, report[1])
		counters = append(counters, report[8])
	}
	assert.Equal(t, want, cmds, "user commands out of submission order")
	for i := 1; i < len(counters); i++ {
		assert.Greater(t, counters[i], counters[i-1], "counters must rise across user commands")
	}
}

func TestSendTransferUsesTransferReportID(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{})
	waitForState(t, e, Connected)

	body := make([]byte, 60)
	body[0] = 4 // Completed
	require.NoError(t, e.SendTransfer(context.Background(), body))

	writes := dev.written()
	require.Len(t, writes, 1)
	assert.Equal(t, byte(wire.ReportIDTransfer), writes[0][0])
	assert.Equal(t, body, writes[0][1:])
}

func TestReconnectAfterDeviceFailure(t *testing.T) {
	dev1 := newFakeDevice()
	dev2 := newFakeDevice()
	manager := &fakeManager{devices: []hid.Device{dev1}}
	e := startEngine(t, manager, Config{})
	waitForState(t, e, Connected)

	dev1.fail()
	waitForState(t, e, Disconnected)

	manager.add(dev2)
	waitForState(t, e, Connected)

	// The queue keeps working against the new handle.
	require.NoError(t, e.Send(context.Background(), wire.Ping()))
	assert.NotEmpty(t, dev2.written())
}

func TestCallbacksRunInRegistrationOrder(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{})
	waitForState(t, e, Connected)

	var mu sync.Mutex
	var order []string
	got := make(chan wire.Message, 2)
	e.RegisterCallback(func(m wire.Message) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	e.RegisterCallback(func(m wire.Message) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		got <- m
	})

	// Status report: report ID, message ID, button, then the event flags.
	dev.inbound <- []byte{1, 0x01, 3, 1, 0, 1, 0, 0}

	select {
	case m := <-got:
		status, ok := m.(wire.Status)
		require.True(t, ok)
		assert.Equal(t, byte(3), status.Button)
		assert.True(t, status.Triggered)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestClaimedUpdateReceivesAcks(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{})
	waitForState(t, e, Connected)

	var cbMsgs []wire.Message
	var mu sync.Mutex
	e.RegisterCallback(func(m wire.Message) {
		mu.Lock()
		cbMsgs = append(cbMsgs, m)
		mu.Unlock()
	})

	updates, release, err := e.ClaimUpdates()
	require.NoError(t, err)
	defer release()

	_, _, err = e.ClaimUpdates()
	assert.ErrorIs(t, err, ErrUpdateInFlight)

	// Ack for file 7, package 42, type FileChunk.
	dev.inbound <- []byte{2, 'A', 'K', 7, 0, 42, 0, 2}

	select {
	case m := <-updates:
		ack, ok := m.(wire.ChunkAck)
		require.True(t, ok)
		assert.Equal(t, uint16(7), ack.FileID)
		assert.Equal(t, uint16(42), ack.Package)
		assert.Equal(t, uint8(2), ack.Type)
	case <-time.After(time.Second):
		t.Fatal("ack never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, cbMsgs, "claimed traffic must bypass callbacks")
}

func TestClaimedUpdateClosesOnDisconnect(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev, newFakeDevice()}}, Config{})
	waitForState(t, e, Connected)

	updates, release, err := e.ClaimUpdates()
	require.NoError(t, err)
	defer release()

	dev.fail()

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "sink should close, not deliver")
	case <-time.After(time.Second):
		t.Fatal("sink never closed")
	}
}

func TestCounterWrapsModulo256(t *testing.T) {
	e := New(NewSupervisor(&fakeManager{}, nil, time.Second, nil), Config{}, nil)

	for i := 0; i < 256; i++ {
		assert.Equal(t, byte(i), e.nextCounter())
	}
	assert.Equal(t, byte(0), e.nextCounter())
}

func TestKeepAlivePingsWhenIdle(t *testing.T) {
	dev := newFakeDevice()
	e := startEngine(t, &fakeManager{devices: []hid.Device{dev}}, Config{PingPeriod: 25 * time.Millisecond})
	waitForState(t, e, Connected)

	require.Eventually(t, func() bool {
		for _, report := range dev.written() {
			if len(report) >= 2 && report[0] == wire.ReportIDCommunication && report[1] == wire.CmdPing {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "no keep-alive ping written")
}
