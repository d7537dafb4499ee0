package prompttracker

import (
	"regexp"
	"testing"
	"time"
)

func TestFeedOutputUpdatesTimestampsAndMatchesPrompt(t *testing.T) {
	re := regexp.MustCompile(`^> $`)
	tr := New(re, false)

	now := time.Now()
	tr.FeedOutput(now, []byte("> "))

	if got := tr.LastPromptSeenAt(); got == nil || !got.Equal(now) {
		t.Fatalf("expected last_prompt_seen_at = %v, got %v", now, got)
	}
	if got := tr.LastPTYOutputAt(); got == nil || !got.Equal(now) {
		t.Fatalf("expected last_pty_output_at = %v, got %v", now, got)
	}
}

func TestFeedOutputDoesNotMatchNonPromptLine(t *testing.T) {
	re := regexp.MustCompile(`^> $`)
	tr := New(re, false)
	tr.FeedOutput(time.Now(), []byte("working...\n"))
	if tr.LastPromptSeenAt() != nil {
		t.Fatal("expected no prompt match for non-prompt line")
	}
}

func TestIdleReadyWithNoOutputYet(t *testing.T) {
	tr := New(nil, true)
	if !tr.IdleReady(time.Now(), time.Second) {
		t.Fatal("expected idle_ready=true before any output has been fed")
	}
}

func TestIdleReadyAfterOutputIdle(t *testing.T) {
	tr := New(nil, false)
	start := time.Now()
	tr.FeedOutput(start, []byte("hi\n"))

	if tr.IdleReady(start.Add(5*time.Millisecond), 10*time.Millisecond) {
		t.Fatal("expected idle_ready=false before the idle duration elapses")
	}
	if !tr.IdleReady(start.Add(11*time.Millisecond), 10*time.Millisecond) {
		t.Fatal("expected idle_ready=true once the idle duration has elapsed")
	}
}

func TestStripANSIPreserveControlsIdentityOnPlainText(t *testing.T) {
	in := []byte("hello world\n")
	out := StripANSIPreserveControls(in)
	if string(out) != string(in) {
		t.Fatalf("expected identity for plain text, got %q", out)
	}
}

func TestStripANSIPreserveControlsRemovesCSI(t *testing.T) {
	in := []byte("foo\x1b[31mbar\x1b[0m\n")
	out := StripANSIPreserveControls(in)
	if string(out) != "foobar\n" {
		t.Fatalf("expected CSI sequences stripped, got %q", out)
	}
}

func TestStripANSIPreserveControlsRemovesOSC(t *testing.T) {
	in := []byte("a\x1b]0;title\x07b")
	out := StripANSIPreserveControls(in)
	if string(out) != "ab" {
		t.Fatalf("expected OSC sequence stripped, got %q", out)
	}
}

func TestLearnerProposesRegexAfterThreshold(t *testing.T) {
	l := NewLearner()
	var got *regexp.Regexp
	for i := 0; i < learnerVoteThreshold-1; i++ {
		if re := l.Observe("codex> "); re != nil {
			t.Fatalf("learner fired too early on observation %d", i)
		}
	}
	got = l.Observe("codex> ")
	if got == nil {
		t.Fatal("expected learner to propose a regex at the vote threshold")
	}
	if !got.MatchString("codex> ") {
		t.Error("learned regex should match the observed line")
	}
}

func TestLearnerDoesNotFireOnNonRecurringLines(t *testing.T) {
	l := NewLearner()
	lines := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, line := range lines {
		if re := l.Observe(line); re != nil {
			t.Fatalf("learner should not fire without recurrence, got regex for %q", line)
		}
	}
}
