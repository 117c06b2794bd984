package output

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/me/wsrun/internal/report"
)

func TestBufferedStreamsFlushOnClose(t *testing.T) {
	var buf bytes.Buffer
	rep := report.New(&buf, false)
	mux := NewMux(rep, false)

	s := mux.Open("[a]:")
	fmt.Fprintln(s.Stdout, "out 1")
	fmt.Fprintln(s.Stderr, "err 1")
	fmt.Fprint(s.Stdout, "out 2")

	if buf.Len() != 0 {
		t.Fatalf("buffered output leaked before Close: %q", buf.String())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := "[a]: out 1\n[a]: out 2\n[a]: err 1\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if s.Empty() {
		t.Error("Empty = true after output")
	}

	// Idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if buf.String() != want {
		t.Errorf("second Close wrote again: %q", buf.String())
	}
}

func TestInterlacedStreamsForwardImmediately(t *testing.T) {
	var buf bytes.Buffer
	rep := report.New(&buf, false)
	mux := NewMux(rep, true)

	s := mux.Open("")
	fmt.Fprintln(s.Stdout, "now")
	if buf.String() != "now\n" {
		t.Errorf("interlaced output = %q", buf.String())
	}
	fmt.Fprint(s.Stderr, "tail")
	s.Close()
	if buf.String() != "now\ntail\n" {
		t.Errorf("after Close = %q", buf.String())
	}
}

func TestEmptyStreams(t *testing.T) {
	for _, interlaced := range []bool{true, false} {
		rep := report.New(&bytes.Buffer{}, false)
		s := NewMux(rep, interlaced).Open("[a]:")
		s.Close()
		if !s.Empty() {
			t.Errorf("interlaced=%v: Empty = false with no output", interlaced)
		}
	}
}

func TestBufferedTasksDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	rep := report.New(&buf, false)
	mux := NewMux(rep, false)

	names := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			s := mux.Open("[" + name + "]:")
			defer s.Close()
			for i := 0; i < 20; i++ {
				fmt.Fprintf(s.Stdout, "%s-out-%d\n", name, i)
				fmt.Fprintf(s.Stderr, "%s-err-%d\n", name, i)
			}
		}(name)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(names)*40 {
		t.Fatalf("got %d lines, want %d", len(lines), len(names)*40)
	}
	// Each task's 40 lines must form one contiguous run.
	for start := 0; start < len(lines); start += 40 {
		tag := lines[start][:strings.Index(lines[start], ":")+1]
		for _, l := range lines[start : start+40] {
			if !strings.HasPrefix(l, tag) {
				t.Fatalf("line %q interleaved into block of %s", l, tag)
			}
		}
	}
}
