package update

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropad-io/macropad/internal/wire"
)

func TestChunkEncodeLayout(t *testing.T) {
	c := Chunk{
		Type:    ChunkFileChunk,
		FileID:  0x0102,
		Total:   3,
		Package: 1,
		Data:    []byte{0xAA, 0xBB},
	}
	report := c.Encode()

	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(report[0:2]))
	assert.Equal(t, uint16(0x0102), binary.LittleEndian.Uint16(report[2:4]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(report[4:6]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(report[6:8]))
	assert.Equal(t, byte(0xAA), report[8])
	assert.Equal(t, byte(0xBB), report[9])
	assert.Equal(t, make([]byte, TransferReportSize-10), report[10:])
}

func TestSplitBoundaries(t *testing.T) {
	// 130 bytes splits as 52 + 52 + 26, and the final chunk stays short.
	data := bytes.Repeat([]byte{0x5A}, 130)

	chunks, err := Split(7, "firmware.bin", data)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	assert.Equal(t, ChunkFileStart, chunks[0].Type)
	assert.Equal(t, ChunkFileEnd, chunks[4].Type)

	for i, want := range []int{52, 52, 26} {
		c := chunks[i+1]
		assert.Equal(t, ChunkFileChunk, c.Type)
		assert.Equal(t, uint16(7), c.FileID)
		assert.Equal(t, uint16(3), c.Total)
		assert.Equal(t, uint16(i), c.Package)
		assert.Len(t, c.Data, want)
	}

	assert.Equal(t, data, Reassemble(chunks))
}

func TestSplitFileStartPayload(t *testing.T) {
	chunks, err := Split(1, "config.json", make([]byte, 300))
	require.NoError(t, err)

	start := chunks[0]
	require.Equal(t, ChunkFileStart, start.Type)
	assert.Equal(t, uint16(0), start.Package)
	assert.Equal(t, uint16(TotalChunks(300)), start.Total)

	want := []byte{byte(len("config.json"))}
	want = append(want, "config.json"...)
	want = append(want, 2, 0x2C, 0x01) // 300 little-endian
	assert.Equal(t, want, start.Data)
}

func TestSplitExactMultiple(t *testing.T) {
	chunks, err := Split(2, "app.py", make([]byte, MaxChunkData*2))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[1].Data, MaxChunkData)
	assert.Len(t, chunks[2].Data, MaxChunkData)
}

func TestSplitEmptyFile(t *testing.T) {
	chunks, err := Split(3, "empty", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, ChunkFileStart, chunks[0].Type)
	assert.Equal(t, uint16(0), chunks[0].Total)
	assert.Equal(t, ChunkFileEnd, chunks[1].Type)
}

func TestSplitRejectsOversize(t *testing.T) {
	_, err := Split(1, "big.bin", make([]byte, 1<<16))
	assert.Error(t, err)

	_, err = Split(1, strings.Repeat("n", maxNameLen+1), nil)
	assert.Error(t, err)

	_, err = Split(1, "", nil)
	assert.Error(t, err)
}

func TestSplitDelete(t *testing.T) {
	chunks, err := SplitDelete(9, "old.json")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, ChunkFileDelete, c.Type)
	assert.Equal(t, uint16(9), c.FileID)
	assert.Equal(t, append([]byte{8}, "old.json"...), c.Data)
}

func TestValidateAck(t *testing.T) {
	c := Chunk{Type: ChunkFileChunk, FileID: 7, Package: 4}

	assert.True(t, ValidateAck(c, wire.ChunkAck{FileID: 7, Package: 4, Type: 2}))
	assert.False(t, ValidateAck(c, wire.ChunkAck{FileID: 8, Package: 4, Type: 2}))
	assert.False(t, ValidateAck(c, wire.ChunkAck{FileID: 7, Package: 3, Type: 2}))
	assert.False(t, ValidateAck(c, wire.ChunkAck{FileID: 7, Package: 4, Type: 1}))
}
