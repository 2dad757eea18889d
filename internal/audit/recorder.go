package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Recorder is the write side of the audit trail. Record never returns an
// error: a logging failure must not change the outcome of the request
// that triggered it. Within one request, events are appended in call
// order; across requests no ordering is guaranteed or needed.
type Recorder interface {
	Record(ctx context.Context, e Event)
	Close() error
}

// Sink is the append-only destination a Recorder drains into.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// sinkTimeout bounds a single append so a stuck sink cannot wedge the
// writer goroutine forever.
const sinkTimeout = 5 * time.Second

// QueueRecorder serializes concurrent appends through a single writer
// goroutine, which keeps per-request call order intact and makes the
// sink see one append at a time. When the queue is full the event is
// written to the fallback instead of blocking the request path.
type QueueRecorder struct {
	mu       sync.Mutex
	closed   bool
	ch       chan Event
	fallback io.Writer
	done     chan struct{}
}

// NewQueueRecorder starts the writer goroutine. buffer is the queue
// depth; 256 is plenty for a single instance.
func NewQueueRecorder(sink Sink, buffer int) *QueueRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &QueueRecorder{
		ch:       make(chan Event, buffer),
		fallback: os.Stderr,
		done:     make(chan struct{}),
	}
	go r.drain(sink)
	return r
}

func (r *QueueRecorder) drain(sink Sink) {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.Append(ctx, e); err != nil {
			r.writeFallback(e, err)
		}
		cancel()
	}
}

// Record enqueues the event. It never blocks and never fails the caller;
// if the queue is saturated, or the recorder has already been closed
// (a request can still finish inside the shutdown window), the event
// goes straight to the fallback.
func (r *QueueRecorder) Record(_ context.Context, e Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.writeFallback(e, nil)
		return
	}
	select {
	case r.ch <- e:
		r.mu.Unlock()
	default:
		r.mu.Unlock()
		r.writeFallback(e, nil)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (r *QueueRecorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	<-r.done
	return nil
}

func (r *QueueRecorder) writeFallback(e Event, cause error) {
	line := map[string]any{
		"level": "error",
		"msg":   "audit event not persisted",
		"event": e,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if cause != nil {
		line["error"] = cause.Error()
	}
	// Best effort; there is nowhere further to fall.
	_ = json.NewEncoder(r.fallback).Encode(line)
}

// WriterSink appends events as one JSON object per line. It is used for
// local development and as a test double for the database sink.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink wraps w in a line-oriented JSON sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Append writes one JSON line. Safe for concurrent use.
func (s *WriterSink) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}
