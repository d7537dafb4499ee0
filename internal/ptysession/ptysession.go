// Package ptysession owns the PTY lifecycle for the wrapped CLI child
// process: forking it under a pty, relaying its output, answering the
// narrow set of terminal capability queries VoxTerm intercepts, resizing
// the pty on SIGWINCH, and injecting transcript text on the event loop's
// behalf. It deliberately does not emulate a terminal: output is
// sanitized or passed through byte-for-byte, never parsed into a
// screen buffer.
package ptysession

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// OutputMode controls how child output is handled before being written
// to the overlay writer.
type OutputMode int

const (
	// ModeSanitized strips control sequences VoxTerm does not want the
	// terminal to act on while preserving plain text and newlines.
	ModeSanitized OutputMode = iota
	// ModePassthrough forwards bytes unmodified.
	ModePassthrough
)

// Session owns the pty master, the child process, and the capability
// query responder. It satisfies transcript.Session.
type Session struct {
	mu   sync.Mutex
	ptm  *os.File
	cmd  *exec.Cmd
	mode OutputMode

	oscFg, oscBg string

	rows, cols int
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithMode sets the initial output mode.
func WithMode(mode OutputMode) Option {
	return func(s *Session) { s.mode = mode }
}

// WithColors seeds the OSC 10/11 fallback colors used to answer the
// child's color queries before the real terminal's colors are known.
func WithColors(fg, bg string) Option {
	return func(s *Session) { s.oscFg, s.oscBg = fg, bg }
}

// Start forks command under a pty sized rows x cols.
func Start(command string, args []string, rows, cols int, opts ...Option) (*Session, error) {
	s := &Session{mode: ModeSanitized, rows: rows, cols: cols}
	for _, opt := range opts {
		opt(s)
	}
	s.cmd = exec.Command(command, args...)
	ptm, err := pty.StartWithSize(s.cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}
	s.ptm = ptm
	return s, nil
}

// PipeOutput reads child output until EOF or error, sanitizing or
// passing it through per the current mode, answering capability
// queries inline, and invoking onChunk for each non-empty read.
func (s *Session) PipeOutput(onChunk func(data []byte)) error {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptm.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			s.respondCapabilityQueries(chunk)

			var out []byte
			s.mu.Lock()
			mode := s.mode
			s.mu.Unlock()
			if mode == ModePassthrough {
				out = append(out, chunk...)
			} else {
				out = SanitizeForOverlay(chunk)
			}
			if len(out) > 0 {
				onChunk(out)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// SetMode switches between sanitized and passthrough output handling.
func (s *Session) SetMode(mode OutputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// respondCapabilityQueries answers CSI 5n (device status), CSI 6n
// (cursor position), CSI c (primary device attributes), and OSC 10/11
// (fg/bg color) queries the child emits, since VoxTerm does not run a
// real screen buffer to answer them from.
func (s *Session) respondCapabilityQueries(data []byte) {
	if bytes.Contains(data, []byte("\033[5n")) {
		fmt.Fprint(s.ptm, "\033[0n")
	}
	if bytes.Contains(data, []byte("\033[6n")) {
		s.mu.Lock()
		rows, cols := s.rows, s.cols
		s.mu.Unlock()
		fmt.Fprintf(s.ptm, "\033[%d;%dR", rows, cols)
	}
	if bytes.Contains(data, []byte("\033[c")) {
		fmt.Fprint(s.ptm, "\033[?1;2c")
	}
	s.mu.Lock()
	fg, bg := s.oscFg, s.oscBg
	s.mu.Unlock()
	if fg != "" && bytes.Contains(data, []byte("\033]10;?")) {
		fmt.Fprintf(s.ptm, "\033]10;%s\033\\", fg)
	}
	if bg != "" && bytes.Contains(data, []byte("\033]11;?")) {
		fmt.Fprintf(s.ptm, "\033]11;%s\033\\", bg)
	}
}

// SendText writes text to the child's stdin without a trailing newline.
func (s *Session) SendText(text string) error {
	_, err := s.ptm.Write([]byte(text))
	return err
}

// SendTextWithNewline writes text followed by a carriage return, which
// submits a line to most line-editing CLIs.
func (s *Session) SendTextWithNewline(text string) error {
	_, err := s.ptm.Write([]byte(text + "\r"))
	return err
}

// WriteRaw writes bytes to the child's stdin, used for forwarded
// keystrokes that are not transcript text.
func (s *Session) WriteRaw(p []byte) (int, error) {
	return s.ptm.Write(p)
}

// Resize updates the pty's window size.
func (s *Session) Resize(rows, cols int) error {
	s.mu.Lock()
	s.rows, s.cols = rows, cols
	s.mu.Unlock()
	return pty.Setsize(s.ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Wait blocks until the child process exits.
func (s *Session) Wait() error {
	return s.cmd.Wait()
}

// Close releases the pty master.
func (s *Session) Close() error {
	return s.ptm.Close()
}

// Shutdown sends SIGTERM and escalates to SIGKILL if the child has not
// exited within the grace period.
func (s *Session) Shutdown(grace time.Duration) {
	proc := s.cmd.Process
	if proc == nil {
		return
	}
	proc.Signal(syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		s.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		proc.Kill()
	}
}
