// Package update drives firmware and configuration file transfers to the
// macropad over the device engine's transfer channel.
package update

import (
	"encoding/binary"
	"fmt"

	"github.com/macropad-io/macropad/internal/wire"
)

const (
	// TransferReportSize is the size of one transfer report body:
	// [type:2][file id:2][total chunks:2][package index:2][data:52].
	TransferReportSize = 60

	chunkHeaderSize = 8

	// MaxChunkData is the data capacity of a single chunk.
	MaxChunkData = TransferReportSize - chunkHeaderSize

	// FileStart data carries [name length:1][name][0x02][file size:2],
	// which bounds the destination name length.
	maxNameLen = MaxChunkData - 4

	// maxFileSize is bound by the 16-bit size field in FileStart.
	maxFileSize = 1<<16 - 1
)

// ChunkType distinguishes the transfer report kinds.
type ChunkType uint16

const (
	ChunkFileStart  ChunkType = 1
	ChunkFileChunk  ChunkType = 2
	ChunkFileEnd    ChunkType = 3
	ChunkCompleted  ChunkType = 4
	ChunkFileDelete ChunkType = 5
)

func (t ChunkType) String() string {
	switch t {
	case ChunkFileStart:
		return "FileStart"
	case ChunkFileChunk:
		return "FileChunk"
	case ChunkFileEnd:
		return "FileEnd"
	case ChunkCompleted:
		return "Completed"
	case ChunkFileDelete:
		return "FileDelete"
	default:
		return fmt.Sprintf("ChunkType(%d)", uint16(t))
	}
}

// Chunk is one transfer report before encoding. Chunks are immutable once
// built; resending a chunk re-encodes the identical bytes.
type Chunk struct {
	Type    ChunkType
	FileID  uint16
	Total   uint16
	Package uint16
	Data    []byte
}

// Encode serializes the chunk into a transfer report body, little-endian,
// zero-padded to the fixed report size.
func (c Chunk) Encode() [TransferReportSize]byte {
	var report [TransferReportSize]byte
	binary.LittleEndian.PutUint16(report[0:2], uint16(c.Type))
	binary.LittleEndian.PutUint16(report[2:4], c.FileID)
	binary.LittleEndian.PutUint16(report[4:6], c.Total)
	binary.LittleEndian.PutUint16(report[6:8], c.Package)
	copy(report[chunkHeaderSize:], c.Data)
	return report
}

// Split derives the ordered chunk sequence for one file: FileStart, the data
// chunks with contiguous package indices from 0, then FileEnd. The final
// data chunk may be shorter than MaxChunkData. Splitting is deterministic,
// so a retry can rebuild and resend an identical chunk without shared state.
func Split(fileID uint16, name string, data []byte) ([]Chunk, error) {
	if len(name) == 0 || len(name) > maxNameLen {
		return nil, fmt.Errorf("update: destination name %q must be 1..%d bytes", name, maxNameLen)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("update: file %q is %d bytes, limit is %d", name, len(data), maxFileSize)
	}

	total := TotalChunks(len(data))

	chunks := make([]Chunk, 0, total+2)
	chunks = append(chunks, Chunk{
		Type:   ChunkFileStart,
		FileID: fileID,
		Total:  uint16(total),
		Data:   fileStartData(name, uint16(len(data))),
	})

	for i := 0; i < len(data); i += MaxChunkData {
		end := min(i+MaxChunkData, len(data))
		chunks = append(chunks, Chunk{
			Type:    ChunkFileChunk,
			FileID:  fileID,
			Total:   uint16(total),
			Package: uint16(i / MaxChunkData),
			Data:    data[i:end],
		})
	}

	chunks = append(chunks, Chunk{Type: ChunkFileEnd, FileID: fileID})
	return chunks, nil
}

// SplitDelete derives the single-chunk sequence that removes a file from the
// device filesystem.
func SplitDelete(fileID uint16, name string) ([]Chunk, error) {
	if len(name) == 0 || len(name) > MaxChunkData-1 {
		return nil, fmt.Errorf("update: delete target name %q must be 1..%d bytes", name, MaxChunkData-1)
	}

	data := make([]byte, 0, len(name)+1)
	data = append(data, byte(len(name)))
	data = append(data, name...)

	return []Chunk{{Type: ChunkFileDelete, FileID: fileID, Data: data}}, nil
}

// CompletedChunk marks the end of the whole update run.
func CompletedChunk() Chunk {
	return Chunk{Type: ChunkCompleted}
}

// TotalChunks returns the number of data chunks needed for n file bytes.
func TotalChunks(n int) int {
	return (n + MaxChunkData - 1) / MaxChunkData
}

// Reassemble concatenates the data chunks of a split sequence back into the
// original file bytes. Used to verify split round-trips.
func Reassemble(chunks []Chunk) []byte {
	var out []byte
	for _, c := range chunks {
		if c.Type == ChunkFileChunk {
			out = append(out, c.Data...)
		}
	}
	return out
}

// ValidateAck reports whether ack acknowledges exactly the given chunk. A
// mismatch on any of file id, package index or chunk type is a protocol
// violation, not a stale duplicate to ignore.
func ValidateAck(c Chunk, ack wire.ChunkAck) bool {
	return ack.FileID == c.FileID &&
		ack.Package == c.Package &&
		ack.Type == uint8(c.Type)
}

func fileStartData(name string, size uint16) []byte {
	data := make([]byte, 0, len(name)+4)
	data = append(data, byte(len(name)))
	data = append(data, name...)
	data = append(data, 2) // size field indicator: two bytes follow
	data = binary.LittleEndian.AppendUint16(data, size)
	return data
}
