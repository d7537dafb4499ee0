package transcript

import (
	"time"

	"github.com/voxterm/voxterm/internal/prompttracker"
)

// promptReady reports whether the tracker's last prompt match is newer
// than the last Enter we sent (i.e. the CLI is at the prompt after our
// own last send), or true unconditionally if a prompt has ever been seen
// and we have not yet sent an Enter.
func promptReady(tracker *prompttracker.Tracker, lastEnterAt *time.Time) bool {
	promptAt := tracker.LastPromptSeenAt()
	switch {
	case promptAt != nil && lastEnterAt != nil:
		return promptAt.After(*lastEnterAt)
	case promptAt != nil:
		return true
	default:
		return false
	}
}

// Ready reports transcript_ready: true iff
//   - the tracker has seen a prompt newer than our last Enter, or
//   - no prompt regex has ever matched AND the tracker is idle for
//     idleTimeout, or
//   - a prompt was once seen and the most recent output is both idle
//     for idleTimeout and arrived after our last Enter.
func Ready(tracker *prompttracker.Tracker, lastEnterAt *time.Time, now time.Time, idleTimeout time.Duration) bool {
	if promptReady(tracker, lastEnterAt) {
		return true
	}

	var idleReady bool
	if lastOutputAt := tracker.LastPTYOutputAt(); lastOutputAt != nil {
		idleReady = now.Sub(*lastOutputAt) >= idleTimeout
	} else {
		idleReady = tracker.IdleReady(now, idleTimeout)
	}

	if tracker.LastPromptSeenAt() == nil {
		return idleReady
	}

	lastOutputAt := tracker.LastPTYOutputAt()
	if lastEnterAt != nil && lastOutputAt != nil {
		if !lastOutputAt.Before(*lastEnterAt) && idleReady {
			return true
		}
	}
	return false
}
