package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ReaderSource feeds lines from any io.Reader, typically a recorded
// telemetry log. Unlike SerialSource it never drops lines: the reader waits
// for the tick loop to catch up.
type ReaderSource struct {
	*LineQueue

	closer io.Closer
	// release frees decoder state once the reader has stopped
	release func()
	cancel  context.CancelFunc
}

// NewReaderSource starts reading r. pace is the delay inserted before each
// line (0 replays as fast as the tick loop consumes).
func NewReaderSource(ctx context.Context, r io.Reader, pace time.Duration) *ReaderSource {
	closer, _ := r.(io.Closer)
	return startReader(ctx, r, closer, nil, pace)
}

func startReader(ctx context.Context, r io.Reader, closer io.Closer, release func(), pace time.Duration) *ReaderSource {
	ctx, cancel := context.WithCancel(ctx)
	src := &ReaderSource{
		LineQueue: newLineQueue(DefaultQueueSize),
		closer:    closer,
		release:   release,
		cancel:    cancel,
	}
	go src.pump(ctx, r, pumpOptions{block: true, pace: pace})
	return src
}

// OpenReplay replays a telemetry log file. Logs ending in .gz or .zst are
// decompressed on the fly.
func OpenReplay(ctx context.Context, path string, pace time.Duration) (*ReaderSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}

	var (
		r       io.Reader = f
		release func()
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read gzip replay: %w", err)
		}
		r, release = zr, func() { _ = zr.Close() }
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read zstd replay: %w", err)
		}
		r, release = zr, zr.Close
	}

	return startReader(ctx, r, f, release, pace), nil
}

// Close stops the reader and closes the underlying reader if it is closable.
func (s *ReaderSource) Close() error {
	s.cancel()
	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	<-s.Done()
	if s.release != nil {
		s.release()
	}
	return err
}
