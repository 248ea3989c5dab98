package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// DefaultQueueSize is the default number of records that may wait for the
// writer.
const DefaultQueueSize = 256

const writeTimeout = 10 * time.Second

// ErrQueueFull is returned when the writer has fallen too far behind.
var ErrQueueFull = errors.New("record queue is full")

// recordQueue is a thread-safe FIFO of records waiting to be written.
type recordQueue struct {
	entries []domain.SessionRecord
	mu      sync.Mutex
	maxSize int
}

func newRecordQueue(maxSize int) *recordQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &recordQueue{
		entries: make([]domain.SessionRecord, 0),
		maxSize: maxSize,
	}
}

func (q *recordQueue) enqueue(rec domain.SessionRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		return ErrQueueFull
	}
	q.entries = append(q.entries, rec)
	return nil
}

func (q *recordQueue) dequeue() (domain.SessionRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return domain.SessionRecord{}, false
	}
	rec := q.entries[0]
	q.entries = q.entries[1:]
	return rec, true
}

func (q *recordQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// recordWriter drains a recordQueue on its own goroutine so ticks never wait
// for storage. Failed writes are reported once and dropped.
type recordWriter struct {
	queue    *recordQueue
	recorder Recorder
	onError  func(domain.SessionRecord, error)

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending int
	closed  bool
	waiters []chan struct{}
}

func newRecordWriter(recorder Recorder, size int, onError func(domain.SessionRecord, error)) *recordWriter {
	w := &recordWriter{
		queue:    newRecordQueue(size),
		recorder: recorder,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *recordWriter) Enqueue(rec domain.SessionRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.queue.enqueue(rec); err != nil {
		return err
	}
	w.pending++
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *recordWriter) run() {
	defer close(w.done)
	for {
		rec, ok := w.queue.dequeue()
		if ok {
			w.write(rec)
			continue
		}
		select {
		case <-w.wake:
		case <-w.stop:
			if w.queue.len() == 0 {
				return
			}
		}
	}
}

func (w *recordWriter) write(rec domain.SessionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	err := w.recorder.RecordSession(ctx, rec)
	cancel()

	if err != nil {
		var perr *domain.PersistenceError
		if !errors.As(err, &perr) {
			err = &domain.PersistenceError{Op: "record session", Err: err}
		}
		log.ErrorErr(log.CatTimer, "Session write failed", err,
			"guid", rec.GUID, "mode", rec.Mode, "outcome", rec.Outcome)
		if w.onError != nil {
			w.onError(rec, err)
		}
	} else {
		log.Debug(log.CatTimer, "Session written",
			"guid", rec.GUID, "mode", rec.Mode, "outcome", rec.Outcome, "actual", rec.ActualSeconds)
	}
	w.finish()
}

func (w *recordWriter) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending--
	if w.pending > 0 {
		return
	}
	for _, ch := range w.waiters {
		close(ch)
	}
	w.waiters = nil
}

// Flush blocks until every queued record has been handed to the recorder.
func (w *recordWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.pending == 0 {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush session writes: %w", ctx.Err())
	}
}

// Close refuses new records, drains the queue and stops the goroutine.
func (w *recordWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.stop)
	w.mu.Unlock()
	<-w.done
}
