// Package report collects run-level messages and serializes every write to
// the terminal, including the per-task tagged output streams.
package report

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/me/wsrun/pkg/model"
)

// Message is one reported error.
type Message struct {
	Kind model.ErrorKind
	Text string
}

// Report is the run's report sink. It is safe for concurrent use.
type Report struct {
	mu     sync.Mutex
	out    io.Writer
	errors []Message

	marker   lipgloss.Style
	errStyle lipgloss.Style
	prefixes []lipgloss.Style
}

var prefixPalette = []lipgloss.Color{"33", "208", "35", "36", "142", "171"}

// New creates a Report writing to out. When color is false every style
// renders as plain text.
func New(out io.Writer, color bool) *Report {
	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	rep := &Report{
		out:      out,
		marker:   r.NewStyle().Foreground(lipgloss.Color("39")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
	for _, c := range prefixPalette {
		rep.prefixes = append(rep.prefixes, r.NewStyle().Foreground(c))
	}
	return rep
}

// ColorEnabled resolves a color mode (auto, always, never) for f. Auto
// honours NO_COLOR and enables color only on a terminal.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ReportError records an error and prints it.
func (r *Report) ReportError(kind model.ErrorKind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, Message{Kind: kind, Text: text})
	io.WriteString(r.out, r.marker.Render("➤")+" "+r.errStyle.Render(string(kind))+": "+text+"\n")
}

// ReportInfo prints an informational line. Infos never affect the exit code.
func (r *Report) ReportInfo(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.out, r.marker.Render("➤")+" "+text+"\n")
}

// HasErrors reports whether any error has been recorded.
func (r *Report) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// Errors returns a copy of the recorded errors.
func (r *Report) Errors() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.errors))
	copy(out, r.errors)
	return out
}

// ExitCode is 1 when any error was reported, else 0.
func (r *Report) ExitCode() int {
	if r.HasErrors() {
		return 1
	}
	return 0
}

// Prefix renders the "[name]:" tag for the index-th task. Colors cycle.
func (r *Report) Prefix(name string, index int) string {
	style := r.prefixes[index%len(r.prefixes)]
	return style.Render("[" + name + "]:")
}

// Chunk is a block of task output destined for one tagged writer.
type Chunk struct {
	Writer *TaggedWriter
	Data   []byte
}

// WriteBlock writes every chunk under a single acquisition of the output
// lock, so no other writer can interleave between them.
func (r *Report) WriteBlock(chunks ...Chunk) {
	// Writers lock before the report does, never after.
	for _, c := range chunks {
		if len(c.Data) > 0 {
			c.Writer.markReceived()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		if len(c.Data) > 0 {
			r.writeLinesLocked(c.Writer.prefix, c.Data)
		}
	}
}

func (r *Report) writeLines(prefix string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeLinesLocked(prefix, data)
}

// writeLinesLocked writes data line by line, tagging each line with prefix.
// A missing trailing newline is added.
func (r *Report) writeLinesLocked(prefix string, data []byte) {
	var buf bytes.Buffer
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if prefix != "" {
			buf.WriteString(prefix)
			buf.WriteByte(' ')
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	r.out.Write(buf.Bytes())
}
