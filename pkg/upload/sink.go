package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/beaconlog/pkg/rotation"
)

// Metadata describes a finalized file handed to a Sink.
type Metadata struct {
	RunID       string
	Day         rotation.Day
	Sequence    int
	Bytes       int64
	FinalizedAt time.Time
}

// MetadataOf extracts the hand-off metadata of a log file.
func MetadataOf(f rotation.LogFile) Metadata {
	return Metadata{
		RunID:       f.RunID,
		Day:         f.Day,
		Sequence:    f.Sequence,
		Bytes:       f.BytesWritten,
		FinalizedAt: f.FinalizedAt,
	}
}

// Sink is the durable-storage destination of finalized files. A nil error
// means the sink accepted ownership of the file.
type Sink interface {
	Dispatch(ctx context.Context, path string, meta Metadata) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, path string, meta Metadata) error

// Dispatch calls f.
func (f SinkFunc) Dispatch(ctx context.Context, path string, meta Metadata) error {
	return f(ctx, path, meta)
}

// NopSink accepts every file and does nothing with it.
type NopSink struct{}

// Dispatch implements Sink.
func (NopSink) Dispatch(context.Context, string, Metadata) error {
	return nil
}

// Directory sink modes.
const (
	ModeCopy = "copy"
	ModeMove = "move"
)

// DirectorySink places finalized files into a destination directory, such
// as a mount synchronized by an external uploader. Files appear atomically:
// data is written to a temporary name and renamed into place.
type DirectorySink struct {
	dir  string
	move bool
}

// NewDirectorySink creates the destination directory and returns a sink.
// mode is ModeCopy or ModeMove.
func NewDirectorySink(dir, mode string) (*DirectorySink, error) {
	if mode != ModeCopy && mode != ModeMove {
		return nil, fmt.Errorf("upload: unknown directory sink mode %q", mode)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create sink directory: %w", err)
	}
	return &DirectorySink{dir: dir, move: mode == ModeMove}, nil
}

// Dispatch implements Sink.
func (s *DirectorySink) Dispatch(ctx context.Context, path string, _ Metadata) error {
	dest := filepath.Join(s.dir, filepath.Base(path))

	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("upload: destination %s already exists", dest)
	}

	if s.move {
		// Same filesystem: a rename is already atomic
		if err := os.Rename(path, dest); err == nil {
			return nil
		}
	}

	if err := copyAtomic(ctx, path, dest); err != nil {
		return err
	}

	if s.move {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("upload: remove source after copy: %w", err)
		}
	}
	return nil
}

func copyAtomic(ctx context.Context, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("upload: open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("upload: create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: in}); err != nil {
		return fmt.Errorf("upload: copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("upload: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("upload: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("upload: rename: %w", err)
	}
	committed = true
	return nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
