package prompttracker

import (
	"regexp"
)

// learnerWindow and learnerVoteThreshold implement the acceptance
// criteria decided in SPEC_FULL.md's Open Question resolution: over a
// rolling window of the last 8 idle-terminated output lines, a
// non-empty trailing line that recurs in at least 5 of them is compiled
// as an anchored, exact-line prompt regex.
const (
	learnerWindow        = 8
	learnerVoteThreshold = 5
)

// Learner proposes a prompt regex by observing repeated trailing lines
// across idle-terminated PTY output chunks, only while no configured or
// backend-default regex is active.
type Learner struct {
	history []string
}

func NewLearner() *Learner {
	return &Learner{}
}

// Observe records one candidate trailing line and returns a compiled
// regex once it has recurred at least learnerVoteThreshold times within
// the last learnerWindow observations; otherwise it returns nil.
func (l *Learner) Observe(line string) *regexp.Regexp {
	if line == "" {
		return nil
	}
	l.history = append(l.history, line)
	if len(l.history) > learnerWindow {
		l.history = l.history[len(l.history)-learnerWindow:]
	}

	count := 0
	for _, h := range l.history {
		if h == line {
			count++
		}
	}
	if count < learnerVoteThreshold {
		return nil
	}
	return regexp.MustCompile("^" + regexp.QuoteMeta(line) + "$")
}
