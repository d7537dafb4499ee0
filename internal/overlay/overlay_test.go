package overlay

import (
	"bytes"
	"testing"
	"time"

	"github.com/voxterm/voxterm/internal/voxmodel"
)

func TestHandlePtyOutputWritesThrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	w.handle(Msg{Kind: MsgPtyOutput, Data: []byte("hello")})
	if buf.String() != "hello" {
		t.Fatalf("expected pty output written through, got %q", buf.String())
	}
	if !w.dirty {
		t.Fatal("expected writer marked dirty after pty output")
	}
}

func TestHandleStatusSetsMessageAndExpiry(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	w.handle(Msg{Kind: MsgStatus, StatusText: "Transcript ready", ClearAfter: time.Second})
	if w.status.Message != "Transcript ready" {
		t.Fatalf("expected status message set, got %q", w.status.Message)
	}
	if w.statusExpireAt.IsZero() {
		t.Fatal("expected a non-zero expiry for a timed status")
	}
}

func TestRedrawExpiresStaleStatus(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	w.status.Message = "old"
	w.statusExpireAt = time.Now().Add(-time.Second)
	w.redraw()
	if w.status.Message != "" {
		t.Fatalf("expected expired status cleared, got %q", w.status.Message)
	}
}

func TestHandleMouseTogglesEscapeSequences(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	w.handle(Msg{Kind: MsgEnableMouse})
	if !w.mouseEnabled || buf.Len() == 0 {
		t.Fatal("expected mouse enabled and an escape sequence written")
	}
	buf.Reset()
	w.handle(Msg{Kind: MsgDisableMouse})
	if w.mouseEnabled || buf.Len() == 0 {
		t.Fatal("expected mouse disabled and an escape sequence written")
	}
}

func TestHandleShutdownReturnsTrue(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	if !w.handle(Msg{Kind: MsgShutdown}) {
		t.Fatal("expected MsgShutdown to signal the writer to stop")
	}
}

func TestRedrawNeverExceedsTerminalWidth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 20)
	w.status.Message = "a very long status message that would overflow a narrow terminal"
	line := w.renderBannerLine()
	if len(line) > 20*4 { // generous byte bound; width-accuracy is overlaystring's job
		t.Fatalf("expected banner line bounded to terminal width, got %d bytes", len(line))
	}
}

func TestSetStatusForwardsThroughChannel(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 24, 80)
	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()
	w.SetStatus("hi", 0)
	w.Send(Msg{Kind: MsgShutdown})
	<-done
	if w.status.Message != "hi" {
		t.Fatalf("expected status 'hi' applied by writer goroutine, got %q", w.status.Message)
	}
	_ = voxmodel.StatusLineState{}
}
