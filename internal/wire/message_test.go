package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTruncated(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, {0x01}} {
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrTruncated, "raw=%v", raw)
	}

	// Known identifiers with missing payload are also truncated.
	_, err := Decode([]byte{0x01, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Decode([]byte{0x01, 0x99, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeStatus(t *testing.T) {
	raw := []byte{0x01, 0x01, 3, 1, 0, 0, 1, 0}
	msg, err := Decode(raw)
	require.NoError(t, err)

	status, ok := msg.(Status)
	require.True(t, ok, "expected Status, got %T", msg)
	assert.Equal(t, uint8(3), status.Button)
	assert.True(t, status.Triggered)
	assert.False(t, status.Longpressed)
	assert.False(t, status.Pressed)
	assert.True(t, status.Released)
}

func TestDecodeVersionInfo(t *testing.T) {
	raw := []byte{0x01, 0x99, 1, 2, 3, 0x05, 0, 0}
	msg, err := Decode(raw)
	require.NoError(t, err)

	vi, ok := msg.(VersionInfo)
	require.True(t, ok, "expected VersionInfo, got %T", msg)
	assert.Equal(t, "1.2.3", vi.Version())
	assert.Equal(t, HardwareTenButtonUSB, vi.Hardware)
}

func TestDecodeStatusRequest(t *testing.T) {
	msg, err := Decode([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.IsType(t, StatusRequest{}, msg)
}

func TestDecodeChunkAck(t *testing.T) {
	raw := []byte{0x02, 'A', 'K', 0x07, 0x00, 0x2A, 0x00, 0x02}
	msg, err := Decode(raw)
	require.NoError(t, err)

	ack, ok := msg.(ChunkAck)
	require.True(t, ok, "expected ChunkAck, got %T", msg)
	assert.Equal(t, uint16(7), ack.FileID)
	assert.Equal(t, uint16(42), ack.Package)
	assert.Equal(t, uint8(2), ack.Type)
}

func TestDecodeChunkAckShort(t *testing.T) {
	// A short ack still decodes; missing fields stay zero.
	msg, err := Decode([]byte{0x02, 'A', 'K', 0x07, 0x00})
	require.NoError(t, err)

	ack := msg.(ChunkAck)
	assert.Equal(t, uint16(7), ack.FileID)
	assert.Equal(t, uint16(0), ack.Package)
}

func TestDecodeUpdateError(t *testing.T) {
	reason := "CHECKSUM_MISMATCH"
	raw := append([]byte{0x02, 'E', 'R', byte(len(reason))}, reason...)
	raw = append(raw, 0, 0, 0) // device pads the report

	msg, err := Decode(raw)
	require.NoError(t, err)

	ue, ok := msg.(UpdateError)
	require.True(t, ok, "expected UpdateError, got %T", msg)
	assert.Equal(t, "CHECKSUM_MISMATCH", ue.Reason)
}

func TestDecodeUpdateErrorLengthBeyondBuffer(t *testing.T) {
	raw := []byte{0x02, 'E', 'R', 200, 'o', 'o', 'p', 's'}
	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, UpdateError{Reason: "oops"}, msg)
}

func TestDecodeDeviceLog(t *testing.T) {
	tests := []struct {
		name  string
		ident string
		level LogLevel
	}{
		{"debug", "LD", LogDebug},
		{"error", "LE", LogError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := append([]byte{0x02}, tt.ident...)
			raw = append(raw, "hello device"...)
			raw = append(raw, 0, 'x', 'x') // text is NUL-terminated

			msg, err := Decode(raw)
			require.NoError(t, err)

			dl := msg.(DeviceLog)
			assert.Equal(t, tt.level, dl.Level)
			assert.Equal(t, "hello device", dl.Text)
		})
	}
}

func TestDecodeUnknown(t *testing.T) {
	raw := []byte{0x01, 0x7F, 1, 2, 3}
	msg, err := Decode(raw)
	require.NoError(t, err)

	u, ok := msg.(Unknown)
	require.True(t, ok, "expected Unknown, got %T", msg)
	assert.Equal(t, raw, u.Raw)

	// The decoded copy must not alias the read buffer.
	raw[1] = 0xFE
	assert.Equal(t, byte(0x7F), u.Raw[1])
}
