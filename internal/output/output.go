// Package output creates the per-task stdout/stderr sinks of a run, either
// streaming lines as they arrive or holding them until the task ends.
package output

import (
	"bytes"
	"io"
	"sync"

	"github.com/me/wsrun/internal/report"
)

// Mux hands out output streams for tasks.
type Mux struct {
	report     *report.Report
	interlaced bool
}

// NewMux creates a Mux writing through rep. When interlaced is false each
// task's output is buffered and flushed as one block on Close.
func NewMux(rep *report.Report, interlaced bool) *Mux {
	return &Mux{report: rep, interlaced: interlaced}
}

// Streams is the pair of sinks handed to one task. Close must be called on
// every exit path; it is idempotent.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer

	report *report.Report
	out    *report.TaggedWriter
	err    *report.TaggedWriter
	bufOut *syncBuffer
	bufErr *syncBuffer

	once     sync.Once
	closeErr error
}

// Open returns the streams for one task, tagging each line with prefix.
func (m *Mux) Open(prefix string) *Streams {
	s := &Streams{
		report: m.report,
		out:    m.report.CreateTaggedWriter(prefix),
		err:    m.report.CreateTaggedWriter(prefix),
	}
	if m.interlaced {
		s.Stdout, s.Stderr = s.out, s.err
		return s
	}
	s.bufOut, s.bufErr = &syncBuffer{}, &syncBuffer{}
	s.Stdout, s.Stderr = s.bufOut, s.bufErr
	return s
}

// Close signals end of output. Buffered content is written as one
// contiguous block, stdout first.
func (s *Streams) Close() error {
	s.once.Do(func() {
		if s.bufOut != nil {
			s.report.WriteBlock(
				report.Chunk{Writer: s.out, Data: s.bufOut.take()},
				report.Chunk{Writer: s.err, Data: s.bufErr.take()},
			)
		}
		errOut := s.out.Close()
		errErr := s.err.Close()
		if errOut != nil {
			s.closeErr = errOut
		} else {
			s.closeErr = errErr
		}
	})
	return s.closeErr
}

// Empty reports whether neither stream received any bytes. It is only
// meaningful after Close.
func (s *Streams) Empty() bool {
	return !s.out.Received() && !s.err.Received()
}

// syncBuffer is a bytes.Buffer safe for the concurrent copy goroutines
// started by os/exec.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.buf.Bytes()
	b.buf = bytes.Buffer{}
	return data
}
