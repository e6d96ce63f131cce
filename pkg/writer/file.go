package writer

import (
	"io"
	"os"
)

// File is the handle the writer appends to.
type File interface {
	io.Writer
	Sync() error
	Close() error
}

// OpenFunc opens path for appending, creating it if needed.
type OpenFunc func(path string) (File, error)

// defaultFileMode is the permission of created log files.
const defaultFileMode os.FileMode = 0644

// OpenAppend is the default OpenFunc.
func OpenAppend(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return nil, err
	}
	return f, nil
}
