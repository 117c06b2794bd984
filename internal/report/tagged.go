package report

import (
	"bytes"
	"errors"
	"sync"
)

// ErrWriterClosed is returned when writing to a closed TaggedWriter.
var ErrWriterClosed = errors.New("tagged writer closed")

// TaggedWriter forwards complete lines to the report, each tagged with a
// prefix. A trailing partial line is held until more bytes arrive or the
// writer is closed.
type TaggedWriter struct {
	report *Report
	prefix string

	mu       sync.Mutex
	partial  []byte
	received bool
	closed   bool
}

// CreateTaggedWriter returns a writer whose lines are tagged with prefix.
// An empty prefix writes lines untagged.
func (r *Report) CreateTaggedWriter(prefix string) *TaggedWriter {
	return &TaggedWriter{report: r, prefix: prefix}
}

// Write implements io.Writer.
func (w *TaggedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrWriterClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	w.received = true

	w.partial = append(w.partial, p...)
	i := bytes.LastIndexByte(w.partial, '\n')
	if i < 0 {
		return len(p), nil
	}
	w.report.writeLines(w.prefix, w.partial[:i+1])
	rest := w.partial[i+1:]
	w.partial = append(make([]byte, 0, len(rest)), rest...)
	return len(p), nil
}

// Close flushes any partial line and signals end of output. It is safe to
// call more than once.
func (w *TaggedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if len(w.partial) > 0 {
		w.report.writeLines(w.prefix, w.partial)
		w.partial = nil
	}
	w.closed = true
	return nil
}

// Received reports whether any bytes were written to this writer.
func (w *TaggedWriter) Received() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.received
}

func (w *TaggedWriter) markReceived() {
	w.mu.Lock()
	w.received = true
	w.mu.Unlock()
}
