package update

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// deleteSuffix on a file name requests removal of the target from the
// device filesystem instead of an upload.
const deleteSuffix = ".delete"

// File is one payload of an update run, addressed on the device by Name.
type File struct {
	Name string
	Data []byte
}

// LoadFile reads a local file into an update payload named after its base
// name.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read update file: %w", err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// chunks derives the transfer sequence for the file, turning the delete
// suffix into a single FileDelete chunk for the remaining name.
func (f File) chunks(fileID uint16) ([]Chunk, error) {
	if target, ok := strings.CutSuffix(f.Name, deleteSuffix); ok {
		return SplitDelete(fileID, target)
	}
	return Split(fileID, f.Name, f.Data)
}
