// Package transport delivers raw telemetry lines to the tick loop.
//
// Every source reads on its own goroutine and hands complete lines to the
// tick loop through a LineQueue, a buffered channel with exactly one
// producer and one consumer. TryReadLine never blocks, so a tick with no
// data available simply does nothing.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the number of lines buffered between reader and tick loop.
const DefaultQueueSize = 256

// maxLineLength bounds a line without a terminator; longer garbage is dropped.
const maxLineLength = 4096

// Source is anything the tick loop can poll for telemetry lines.
type Source interface {
	// TryReadLine returns the next complete line, or false when none is buffered.
	TryReadLine() (string, bool)
}

// LineQueue is the single-producer/single-consumer hand-off between a
// reader goroutine and the tick loop.
type LineQueue struct {
	ch      chan string
	done    chan struct{}
	dropped atomic.Uint64
	read    atomic.Uint64

	mu  sync.Mutex
	err error
}

func newLineQueue(size int) *LineQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &LineQueue{
		ch:   make(chan string, size),
		done: make(chan struct{}),
	}
}

// TryReadLine implements Source.
func (q *LineQueue) TryReadLine() (string, bool) {
	select {
	case line, ok := <-q.ch:
		return line, ok
	default:
		return "", false
	}
}

// Done is closed when the reader goroutine has exited and every buffered
// line has been handed over or dropped.
func (q *LineQueue) Done() <-chan struct{} {
	return q.done
}

// Err returns the error that stopped the reader, if any.
// A clean end of input or a cancelled context is not an error.
func (q *LineQueue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Dropped returns how many lines were discarded because the queue was full.
func (q *LineQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// LinesRead returns how many complete lines the reader produced.
func (q *LineQueue) LinesRead() uint64 {
	return q.read.Load()
}

// Pending returns the number of buffered lines.
func (q *LineQueue) Pending() int {
	return len(q.ch)
}

// pumpOptions controls how a reader feeds the queue.
type pumpOptions struct {
	// block waits for room instead of dropping the newest line
	block bool

	// pace is the delay between lines (replay only)
	pace time.Duration
}

// pump reads r until EOF, error or ctx cancellation, splitting on '\n'.
//
// Serial ports configured with a read timeout return (0, nil) when idle, so
// the splitting is done here rather than with bufio.Scanner, which gives up
// after repeated empty reads.
func (q *LineQueue) pump(ctx context.Context, r io.Reader, opts pumpOptions) {
	defer close(q.done)
	defer close(q.ch)

	buf := make([]byte, 512)
	var pending []byte

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := pending[:i]
				pending = pending[i+1:]
				if !q.emit(ctx, line, opts) {
					return
				}
			}
			if len(pending) > maxLineLength {
				pending = pending[:0]
				q.dropped.Add(1)
			}
		}

		if err != nil {
			if len(pending) > 0 {
				q.emit(ctx, pending, opts)
			}
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				q.setErr(err)
			}
			return
		}
	}
}

// emit queues one line; it returns false when ctx was cancelled while waiting.
func (q *LineQueue) emit(ctx context.Context, raw []byte, opts pumpOptions) bool {
	line := cleanLine(raw)
	if line == "" {
		return true
	}
	q.read.Add(1)

	if !opts.block {
		select {
		case q.ch <- line:
		default:
			q.dropped.Add(1)
		}
		return true
	}

	if opts.pace > 0 {
		t := time.NewTimer(opts.pace)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}

	select {
	case q.ch <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *LineQueue) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// cleanLine drops invalid UTF-8 and surrounding whitespace (including '\r').
func cleanLine(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}
