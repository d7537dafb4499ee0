// Package activitylog writes VoxTerm's append-only JSONL activity log:
// capture lifecycle events, transcript delivery outcomes, prompt
// detection state changes, and backend errors. Every write takes a
// file lock (github.com/gofrs/flock) so a concurrently running
// instance sharing the same log path never interleaves partial lines.
package activitylog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const maxLogBytes = 10 * 1024 * 1024 // rotate once the active file exceeds this

// Logger appends JSONL entries to path. A disabled Logger (or one
// returned by Nop) discards every call silently.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	path    string
	actor   string
	session string

	file *os.File
	lock *flock.Flock
}

// New opens (creating if needed) the log file at path. If enabled is
// false, the returned Logger accepts every call but never touches the
// filesystem.
func New(enabled bool, path, actor, sessionID string) *Logger {
	l := &Logger{enabled: enabled, path: path, actor: actor, session: sessionID}
	if !enabled {
		return l
	}
	if err := l.open(); err != nil {
		// Logging failures must never block voice capture or transcript
		// delivery; fall back to a disabled logger.
		l.enabled = false
	}
	return l
}

// Nop returns a Logger that discards every event, without a path or
// session ID.
func Nop() *Logger {
	return &Logger{enabled: false}
}

func (l *Logger) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open activity log %s: %w", l.path, err)
	}
	l.file = f
	l.lock = flock.New(l.path + ".lock")
	return nil
}

func (l *Logger) write(event string, fields map[string]any) {
	if !l.enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err == nil {
		defer l.lock.Unlock()
	}

	l.rotateIfNeededLocked()

	entry := map[string]any{
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      l.actor,
		"session_id": l.session,
		"event":      event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.file.Write(append(line, '\n'))
}

func (l *Logger) rotateIfNeededLocked() {
	info, err := l.file.Stat()
	if err != nil || info.Size() < maxLogBytes {
		return
	}
	l.file.Close()
	os.Rename(l.path, l.path+".1")
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err == nil {
		l.file = f
	}
}

// CaptureStarted records the start of a voice capture cycle.
func (l *Logger) CaptureStarted(trigger string) {
	l.write("capture_started", map[string]any{"trigger": trigger})
}

// CaptureStopped records why and how long a capture cycle ran.
func (l *Logger) CaptureStopped(reason string, durationMS int64) {
	l.write("capture_stopped", map[string]any{"reason": reason, "duration_ms": durationMS})
}

// TranscriptDelivered records a successful transcript send.
func (l *Logger) TranscriptDelivered(mode string, textLen int, source string) {
	l.write("transcript_delivered", map[string]any{"mode": mode, "text_len": textLen, "source": source})
}

// TranscriptDropped records a transcript dropped by queue overflow.
func (l *Logger) TranscriptDropped(reason string) {
	l.write("transcript_dropped", map[string]any{"reason": reason})
}

// PromptDetected records that the prompt tracker matched a new prompt
// line, with whether the regex was configured or auto-learned.
func (l *Logger) PromptDetected(source string) {
	l.write("prompt_detected", map[string]any{"source": source})
}

// BackendError records a failure launching or communicating with the
// wrapped CLI.
func (l *Logger) BackendError(component, message string) {
	l.write("backend_error", map[string]any{"component": component, "message": message})
}

// Panic records an unrecovered panic's message and stack before the
// process exits, so a crash can be diagnosed from the activity log
// alone.
func (l *Logger) Panic(message, stack string) {
	l.write("panic", map[string]any{"message": message, "stack": stack})
}

// Close flushes and releases the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.file == nil {
		return nil
	}
	return l.file.Close()
}
