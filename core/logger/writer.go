package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves formatted lines off the caller's goroutine. A single
// loop owns the buffered sinks and flushes whenever the queue runs dry.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []io.Writer) *asyncWriter {
	var live []io.Writer
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 512),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	go w.run(bufio.NewWriterSize(io.MultiWriter(live...), 64<<10))
	return w
}

func (w *asyncWriter) run(buf *bufio.Writer) {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(buf.Flush())
				return
			}
			w.write(buf, line)
			if len(w.lines) == 0 {
				w.record(buf.Flush())
			}
		case ack := <-w.flushes:
			w.drain(buf)
			ack <- buf.Flush()
		}
	}
}

// drain writes whatever is queued right now. Flush holds the read lock while
// it waits, so the queue cannot be closed underneath it.
func (w *asyncWriter) drain(buf *bufio.Writer) {
	for {
		select {
		case line := <-w.lines:
			w.write(buf, line)
		default:
			return
		}
	}
}

func (w *asyncWriter) write(buf *bufio.Writer, line []byte) {
	if _, err := buf.Write(line); err != nil {
		w.record(err)
	}
}

// Write queues a copy of p. It blocks when the queue is full rather than
// dropping lines.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), p...)
	return w.firstErr()
}

// Flush waits until every line queued before the call has reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return w.firstErr()
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	if err := <-ack; err != nil {
		return err
	}
	return w.firstErr()
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
