// Package prompttracker scans sanitized PTY output for a configured or
// learned prompt regex and records the timestamps the transcript
// orchestrator needs to decide when the wrapped CLI is ready for input.
package prompttracker

import (
	"regexp"
	"sync"
	"time"
)

const tailBufferCap = 4096 // bytes, kept small since only the trailing line matters

// Tracker holds the prompt-detection state: a rolling tail buffer scanned
// against a configured or learned prompt regex, plus the timestamps
// needed to decide readiness and idle-flush eligibility.
type Tracker struct {
	mu sync.Mutex

	regex          *regexp.Regexp
	allowAutoLearn bool

	lastPromptSeenAt   *time.Time
	lastPTYOutputAt    *time.Time
	lastManualActivity *time.Time

	tail []byte

	learner *Learner
}

// New builds a Tracker. regex may be nil, in which case auto-learn (if
// allowed) may eventually populate one from the built-in Learner as
// output is fed through FeedOutput.
func New(regex *regexp.Regexp, allowAutoLearn bool) *Tracker {
	t := &Tracker{regex: regex, allowAutoLearn: allowAutoLearn}
	if regex == nil && allowAutoLearn {
		t.learner = NewLearner()
	}
	return t
}

// FeedOutput updates last_pty_output_at, strips remaining ANSI down to
// printable text plus \n\r\t, scans the trailing line against the
// configured/learned prompt regex, and feeds the auto-learner when no
// regex is configured yet.
func (t *Tracker) FeedOutput(now time.Time, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastPTYOutputAt = &now

	stripped := StripANSIPreserveControls(data)
	t.tail = append(t.tail, stripped...)
	if len(t.tail) > tailBufferCap {
		t.tail = t.tail[len(t.tail)-tailBufferCap:]
	}

	line := trailingLine(t.tail)

	if t.regex != nil {
		if t.regex.Match(line) {
			t.lastPromptSeenAt = &now
		}
		return
	}

	if t.allowAutoLearn && t.learner != nil {
		if idleChunk := bytesEndsIdle(stripped); idleChunk {
			if learned := t.learner.Observe(string(line)); learned != nil {
				t.regex = learned
			}
		}
	}
}

// bytesEndsIdle is a narrow heuristic: a chunk terminated by a newline is
// treated as a completed line worth feeding to the learner. The learner
// itself debounces via its rolling-window vote (see Learner.Observe).
func bytesEndsIdle(chunk []byte) bool {
	return len(chunk) > 0 && (chunk[len(chunk)-1] == '\n' || chunk[len(chunk)-1] == '\r')
}

func trailingLine(buf []byte) []byte {
	end := len(buf)
	for end > 0 && (buf[end-1] == '\n' || buf[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && buf[start-1] != '\n' && buf[start-1] != '\r' {
		start--
	}
	return buf[start:end]
}

// NoteActivity records manual input, resetting the idle clock an
// operator-triggered keystroke should reset.
func (t *Tracker) NoteActivity(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastManualActivity = &now
}

func (t *Tracker) LastPromptSeenAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPromptSeenAt
}

func (t *Tracker) LastPTYOutputAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPTYOutputAt
}

// IdleReady reports whether neither PTY output nor manual activity
// (NoteActivity) has arrived within duration of now.
func (t *Tracker) IdleReady(now time.Time, duration time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last := t.lastPTYOutputAt
	if t.lastManualActivity != nil && (last == nil || t.lastManualActivity.After(*last)) {
		last = t.lastManualActivity
	}
	if last == nil {
		return true
	}
	return now.Sub(*last) >= duration
}

// SetRegex installs a regex directly (used when a backend default or CLI
// override resolves after construction).
func (t *Tracker) SetRegex(re *regexp.Regexp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.regex = re
	t.learner = nil
}

// HasRegex reports whether a prompt regex (configured or learned) is
// currently active.
func (t *Tracker) HasRegex() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.regex != nil
}
