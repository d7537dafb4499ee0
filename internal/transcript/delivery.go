package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/voxterm/voxterm/internal/prompttracker"
	"github.com/voxterm/voxterm/internal/voxmodel"
)

// Session is the narrow interface transcript delivery needs from a PTY
// session: inject text with or without a trailing newline.
type Session interface {
	SendText(text string) error
	SendTextWithNewline(text string) error
}

// StatusSink receives human-readable status strings for the overlay's
// status banner. clearAfter of zero means the status persists until the
// next update.
type StatusSink interface {
	SetStatus(text string, clearAfter time.Duration)
}

// SendTranscript trims text and dispatches it per mode: Auto appends a
// newline and submits, Insert leaves the text in the CLI's buffer.
// Returns sentNewline=true only for a successful Auto-mode send, which
// the caller uses to advance last_enter_at. An empty trimmed string is a
// no-op (not an error).
func SendTranscript(session Session, text string, mode voxmodel.SendMode) (sentNewline bool, err error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, nil
	}
	switch mode {
	case voxmodel.SendModeAuto:
		if err := session.SendTextWithNewline(trimmed); err != nil {
			return false, err
		}
		return true, nil
	default:
		if err := session.SendText(trimmed); err != nil {
			return false, err
		}
		return false, nil
	}
}

// DeliverBatch posts a "Transcript ready" status, attempts the send, and
// on failure posts a failure status instead. Batches are never retried,
// to avoid resending a transcript the operator already saw queued.
func DeliverBatch(session Session, status StatusSink, batch Batch, queuedRemaining int, dropNote string) (sentNewline bool) {
	label := batch.Label
	if dropNote != "" {
		label = label + ", " + dropNote
	}
	var text string
	if queuedRemaining > 0 {
		text = fmt.Sprintf("Transcript ready (%s) • queued %d", label, queuedRemaining)
	} else {
		text = fmt.Sprintf("Transcript ready (%s)", label)
	}
	status.SetStatus(text, 2*time.Second)

	sent, err := SendTranscript(session, batch.Text, batch.Mode)
	if err != nil {
		status.SetStatus("Failed to send transcript (see log)", 2*time.Second)
		return false
	}
	return sent
}

// TryFlushPending merges and delivers the front of the queue iff the
// tracker reports readiness. On a successful Auto-mode send, lastEnterAt
// is advanced to now so subsequent readiness checks wait for the next
// prompt.
func TryFlushPending(q *Queue, tracker *prompttracker.Tracker, lastEnterAt *time.Time, session Session, status StatusSink, now time.Time, idleTimeout time.Duration) *time.Time {
	if q.Len() == 0 || !Ready(tracker, lastEnterAt, now, idleTimeout) {
		return lastEnterAt
	}
	batch, ok := MergePending(q)
	if !ok {
		return lastEnterAt
	}
	remaining := q.Len()
	if DeliverBatch(session, status, batch, remaining, "") {
		sent := time.Now()
		return &sent
	}
	return lastEnterAt
}
