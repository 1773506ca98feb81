package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"

	"github.com/unklstewy/flightpath/pkg/telemetry"
)

var (
	// ErrJournalFull is returned by Record when the write queue is full.
	ErrJournalFull = errors.New("frame journal queue full")

	// ErrJournalClosed is returned by Record after Close.
	ErrJournalClosed = errors.New("frame journal closed")
)

// JournalOptions tunes the background writer.
type JournalOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Logger        *slog.Logger
}

func (o *JournalOptions) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 4096
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 200
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// journalEntry is a frame with its arrival time.
type journalEntry struct {
	received time.Time
	frame    telemetry.Frame
}

// batchWriter persists one batch of entries.
type batchWriter func(ctx context.Context, batch []journalEntry) error

// FrameJournal appends accepted telemetry frames to PostgreSQL.
//
// Record never blocks the caller: frames are queued and a background
// goroutine writes them in batches with COPY. When the database cannot keep
// up, frames are dropped from the journal and counted.
type FrameJournal struct {
	sessionID int64
	db        *DB
	write     batchWriter
	opts      JournalOptions

	entries chan journalEntry
	done    chan struct{}

	mu     sync.Mutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// OpenFrameJournal starts a journal session for source (a port name or
// replay file) and the background writer.
func OpenFrameJournal(ctx context.Context, db *DB, source string, opts JournalOptions) (*FrameJournal, error) {
	var sessionID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO journal_sessions (source) VALUES ($1) RETURNING id`,
		source,
	).Scan(&sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal session: %w", err)
	}

	j := newFrameJournal(nil, opts)
	j.db = db
	j.sessionID = sessionID
	j.write = j.copyBatch

	go j.run()
	return j, nil
}

func newFrameJournal(write batchWriter, opts JournalOptions) *FrameJournal {
	opts.setDefaults()
	return &FrameJournal{
		write:   write,
		opts:    opts,
		entries: make(chan journalEntry, opts.BufferSize),
		done:    make(chan struct{}),
	}
}

// SessionID returns the journal_sessions row for this run.
func (j *FrameJournal) SessionID() int64 {
	return j.sessionID
}

// Record queues frame for writing.
func (j *FrameJournal) Record(_ context.Context, frame telemetry.Frame) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	select {
	case j.entries <- journalEntry{received: time.Now().UTC(), frame: frame}:
		return nil
	default:
		j.dropped.Add(1)
		return ErrJournalFull
	}
}

// Stats returns the number of frames written, dropped because the queue was
// full, and lost to failed writes.
func (j *FrameJournal) Stats() (written, dropped, failed uint64) {
	return j.written.Load(), j.dropped.Load(), j.failed.Load()
}

// Close flushes queued frames, waiting at most until ctx is done, and marks
// the session as ended.
func (j *FrameJournal) Close(ctx context.Context) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.entries)
	j.mu.Unlock()

	select {
	case <-j.done:
	case <-ctx.Done():
		return fmt.Errorf("frame journal flush interrupted: %w", ctx.Err())
	}

	if j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE journal_sessions SET ended_at = NOW() WHERE id = $1`,
		j.sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close journal session: %w", err)
	}
	return nil
}

func (j *FrameJournal) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]journalEntry, 0, j.opts.BatchSize)
	for {
		select {
		case e, ok := <-j.entries:
			if !ok {
				j.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= j.opts.BatchSize {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *FrameJournal) flush(batch []journalEntry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := WithRetry(ctx, RetryPolicy{MaxRetries: 2, Wait: time.Second}, j.opts.Logger,
		func(ctx context.Context) error { return j.write(ctx, batch) })
	if err != nil {
		j.failed.Add(uint64(len(batch)))
		j.opts.Logger.Error("frame journal write failed",
			slog.Int("frames", len(batch)),
			slog.Any("error", err))
		return
	}
	j.written.Add(uint64(len(batch)))
}

// copyBatch writes a batch in one transaction with COPY FROM STDIN.
func (j *FrameJournal) copyBatch(ctx context.Context, batch []journalEntry) error {
	txn, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn("telemetry_frames",
		"session_id", "received_at", "device_time",
		"roll", "pitch", "yaw",
		"roll_rate", "pitch_rate", "yaw_rate",
		"accel_x", "accel_y", "accel_z",
		"mode",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, e := range batch {
		f := e.frame
		if _, err := stmt.ExecContext(ctx,
			j.sessionID, e.received, f.Time,
			f.Roll, f.Pitch, f.Yaw,
			f.RollRate, f.PitchRate, f.YawRate,
			f.AccelX, f.AccelY, f.AccelZ,
			f.Mode,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy frame: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	return txn.Commit()
}
