package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unklstewy/flightpath/pkg/telemetry"
)

// recordingWriter collects batches handed to the journal writer.
type recordingWriter struct {
	mu      sync.Mutex
	batches [][]journalEntry
	err     error
}

func (w *recordingWriter) write(_ context.Context, batch []journalEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	cp := make([]journalEntry, len(batch))
	copy(cp, batch)
	w.batches = append(w.batches, cp)
	return nil
}

func (w *recordingWriter) sizes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var n []int
	for _, b := range w.batches {
		n = append(n, len(b))
	}
	return n
}

func frame(tm float64) telemetry.Frame {
	return telemetry.Frame{Time: tm, Mode: "NOML"}
}

// TestFrameJournalBatches tests batching and flush on close.
func TestFrameJournalBatches(t *testing.T) {
	w := &recordingWriter{}
	j := newFrameJournal(w.write, JournalOptions{BatchSize: 3, FlushInterval: time.Hour})
	go j.run()

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if err := j.Record(ctx, frame(float64(i))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if err := j.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sizes := w.sizes()
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Errorf("Expected batches [3 3 1], got %v", sizes)
	}
	if w.batches[2][0].frame.Time != 6 {
		t.Errorf("Expected last frame time 6, got %f", w.batches[2][0].frame.Time)
	}

	written, dropped, failed := j.Stats()
	if written != 7 || dropped != 0 || failed != 0 {
		t.Errorf("Expected 7/0/0, got %d/%d/%d", written, dropped, failed)
	}
}

// TestFrameJournalFlushInterval tests that partial batches are written on a timer.
func TestFrameJournalFlushInterval(t *testing.T) {
	w := &recordingWriter{}
	j := newFrameJournal(w.write, JournalOptions{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	go j.run()
	defer j.Close(context.Background())

	j.Record(context.Background(), frame(1))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.sizes()) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Expected partial batch to be flushed by the timer")
}

// TestFrameJournalFull tests that a full queue drops instead of blocking.
func TestFrameJournalFull(t *testing.T) {
	j := newFrameJournal(nil, JournalOptions{BufferSize: 2})
	// no writer goroutine: the queue only fills

	ctx := context.Background()
	j.Record(ctx, frame(1))
	j.Record(ctx, frame(2))
	err := j.Record(ctx, frame(3))
	if !errors.Is(err, ErrJournalFull) {
		t.Errorf("Expected ErrJournalFull, got %v", err)
	}

	_, dropped, _ := j.Stats()
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", dropped)
	}
}

// TestFrameJournalClosed tests Record after Close.
func TestFrameJournalClosed(t *testing.T) {
	w := &recordingWriter{}
	j := newFrameJournal(w.write, JournalOptions{})
	go j.run()

	ctx := context.Background()
	if err := j.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := j.Close(ctx); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if err := j.Record(ctx, frame(1)); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("Expected ErrJournalClosed, got %v", err)
	}
}

// TestFrameJournalWriteFailure tests that failed batches are counted, not retried forever.
func TestFrameJournalWriteFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New(`pq: relation "telemetry_frames" does not exist`)}
	j := newFrameJournal(w.write, JournalOptions{BatchSize: 2})
	go j.run()

	ctx := context.Background()
	j.Record(ctx, frame(1))
	j.Record(ctx, frame(2))
	j.Close(ctx)

	written, _, failed := j.Stats()
	if written != 0 || failed != 2 {
		t.Errorf("Expected 0 written and 2 failed, got %d and %d", written, failed)
	}
}
