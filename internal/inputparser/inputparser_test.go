package inputparser

import "testing"

func TestFeedPlainRunes(t *testing.T) {
	p := New()
	events := p.Feed([]byte("hi"))
	if len(events) != 2 || events[0].Rune != 'h' || events[1].Rune != 'i' {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFeedCRLFCoalescesToSingleEnter(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\r\n"))
	if len(events) != 1 || events[0].Kind != EventEnter {
		t.Fatalf("expected single Enter event, got %+v", events)
	}
}

func TestFeedCRLFSplitAcrossReads(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\r"))
	if len(events) != 1 || events[0].Kind != EventEnter {
		t.Fatalf("expected Enter on bare CR, got %+v", events)
	}
	events = p.Feed([]byte("\n"))
	if len(events) != 0 {
		t.Fatalf("expected the following LF to be swallowed, got %+v", events)
	}
}

func TestFeedArrowKeys(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\033[A\033[B\033[C\033[D"))
	want := []EventKind{EventArrowUp, EventArrowDown, EventArrowRight, EventArrowLeft}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("event %d: expected %v, got %v", i, k, events[i].Kind)
		}
	}
}

func TestFeedSplitEscapeSequenceBuffersAcrossCalls(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\033["))
	if len(events) != 0 {
		t.Fatalf("expected no events for an incomplete sequence, got %+v", events)
	}
	events = p.Feed([]byte("A"))
	if len(events) != 1 || events[0].Kind != EventArrowUp {
		t.Fatalf("expected arrow-up once the sequence completes, got %+v", events)
	}
}

func TestFeedBareEscapePassesThrough(t *testing.T) {
	p := New()
	events := p.Feed([]byte{0x1B})
	if len(events) != 0 {
		t.Fatalf("expected bare ESC to be buffered pending more input, got %+v", events)
	}
	events = p.Feed([]byte("x"))
	if len(events) != 2 || events[0].Kind != EventEscape || events[1].Rune != 'x' {
		t.Fatalf("expected [Escape, 'x'], got %+v", events)
	}
}

func TestFeedShiftEnterKittyReport(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\033[13;2u"))
	if len(events) != 1 || events[0].Kind != EventRune || events[0].Rune != '\n' {
		t.Fatalf("expected a literal newline rune for shift+enter, got %+v", events)
	}
}

func TestFeedSGRMouseLeftClick(t *testing.T) {
	p := New()
	events := p.Feed([]byte("\033[<0;10;5M"))
	if len(events) != 1 || events[0].Kind != EventMouse {
		t.Fatalf("expected a mouse event, got %+v", events)
	}
	ev := events[0]
	if ev.Mouse != MouseLeft || ev.MouseCol != 10 || ev.MouseRow != 5 || !ev.MousePress {
		t.Fatalf("unexpected mouse event fields: %+v", ev)
	}
}

func TestFeedControlBytes(t *testing.T) {
	p := New()
	events := p.Feed([]byte{0x03, 0x09, 0x7F})
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if events[0].Kind != EventCtrl || events[0].Ctrl != 0x03 {
		t.Errorf("expected ctrl event for 0x03, got %+v", events[0])
	}
	if events[1].Kind != EventTab {
		t.Errorf("expected tab event, got %+v", events[1])
	}
	if events[2].Kind != EventBackspace {
		t.Errorf("expected backspace event, got %+v", events[2])
	}
}
