// Package overlay owns the single background writer goroutine that
// draws VoxTerm's status banner and modal panels over the wrapped
// CLI's own output. All terminal writes funnel through one goroutine
// so the child's output stream and VoxTerm's own UI redraws never
// interleave mid-escape-sequence: a single-writer discipline enforced
// with an explicit message channel instead of a shared lock.
package overlay

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/voxterm/voxterm/internal/overlaystring"
	"github.com/voxterm/voxterm/internal/voxmodel"
)

// MsgKind enumerates the messages the writer goroutine accepts.
type MsgKind int

const (
	MsgPtyOutput MsgKind = iota
	MsgStatus
	MsgEnhancedStatus
	MsgShowOverlay
	MsgClearOverlay
	MsgClearStatus
	MsgBell
	MsgResize
	MsgSetTheme
	MsgEnableMouse
	MsgDisableMouse
	MsgVoiceState
	MsgShutdown
)

// Msg is the single message envelope sent to a Writer's channel. Only
// the fields relevant to Kind are populated.
type Msg struct {
	Kind MsgKind

	Data []byte // MsgPtyOutput

	StatusText  string        // MsgStatus, MsgEnhancedStatus
	ClearAfter  time.Duration // MsgStatus: 0 means persist; MsgEnhancedStatus: 0 keeps any earlier expiry

	Overlay voxmodel.OverlayMode // MsgShowOverlay
	Lines   []string             // MsgShowOverlay body

	Rows, Cols int // MsgResize

	NoColor bool // MsgSetTheme

	// MsgVoiceState fields mirror the subset of StatusLineState the
	// event loop mutates; the writer copies them onto its own status
	// rather than sharing the struct across goroutines.
	VoiceMode        voxmodel.VoiceMode
	RecordingState   voxmodel.RecordingState
	SendMode         voxmodel.SendMode
	AutoVoiceEnabled bool
	QueueDepth       int
	MeterDB          float64
}

const (
	idleRedrawDelay    = 50 * time.Millisecond
	maxPendingDelay    = 150 * time.Millisecond
	reservedBannerRows = 2
)

// ReservedBannerRows reports how many rows at the bottom of the terminal
// the writer reserves for its status banner. Callers size the wrapped
// CLI's pty to the outer terminal's rows minus this value so the
// child's own output never gets drawn into the rows the banner redraws.
func ReservedBannerRows() int { return reservedBannerRows }

// Writer owns the state line, the current modal overlay, and the
// coalesced redraw timer. It is driven entirely by messages sent on
// its channel from the event loop goroutine; it never reads shared
// state directly.
type Writer struct {
	out io.Writer

	ch chan Msg

	status         *voxmodel.StatusLineState
	buttons        voxmodel.ButtonRegistry
	overlay        voxmodel.OverlayMode
	overlayLines   []string
	rows, cols     int
	mouseEnabled   bool
	statusExpireAt time.Time
	pendingSince   time.Time
	dirty          bool
}

// NewWriter constructs a Writer bound to out (normally os.Stdout) with
// the given initial terminal size. Call Run in its own goroutine.
func NewWriter(out io.Writer, rows, cols int) *Writer {
	return &Writer{
		out:    out,
		ch:     make(chan Msg, 64),
		status: voxmodel.NewStatusLineState(),
		rows:   rows,
		cols:   cols,
	}
}

// Send enqueues a message for the writer goroutine.
func (w *Writer) Send(m Msg) { w.ch <- m }

// Run processes messages until a MsgShutdown is received, coalescing
// redraws: a burst of messages triggers at most one redraw every
// idleRedrawDelay once the channel goes quiet, or every maxPendingDelay
// if messages keep arriving continuously.
func (w *Writer) Run() {
	idle := time.NewTimer(idleRedrawDelay)
	defer idle.Stop()
	idle.Stop()

	for {
		select {
		case m, ok := <-w.ch:
			if !ok {
				return
			}
			if w.handle(m) {
				return
			}
			if w.dirty {
				if w.pendingSince.IsZero() {
					w.pendingSince = time.Now()
				}
				idle.Reset(idleRedrawDelay)
				if time.Since(w.pendingSince) >= maxPendingDelay {
					w.redraw()
				}
			}
		case <-idle.C:
			if w.dirty {
				w.redraw()
			}
		}
	}
}

func (w *Writer) handle(m Msg) (shutdown bool) {
	switch m.Kind {
	case MsgPtyOutput:
		w.out.Write(m.Data)
		w.dirty = true
	case MsgStatus:
		w.status.Message = m.StatusText
		if m.ClearAfter > 0 {
			w.statusExpireAt = time.Now().Add(m.ClearAfter)
		} else {
			w.statusExpireAt = time.Time{}
		}
		w.dirty = true
	case MsgEnhancedStatus:
		w.status.Message = m.StatusText
		if m.ClearAfter > 0 {
			w.statusExpireAt = time.Now().Add(m.ClearAfter)
		}
		w.dirty = true
	case MsgClearStatus:
		w.status.Message = ""
		w.statusExpireAt = time.Time{}
		w.dirty = true
	case MsgShowOverlay:
		w.overlay = m.Overlay
		w.overlayLines = m.Lines
		w.dirty = true
	case MsgClearOverlay:
		w.overlay = voxmodel.OverlayNone
		w.overlayLines = nil
		w.dirty = true
	case MsgBell:
		w.out.Write([]byte{0x07})
	case MsgResize:
		w.rows, w.cols = m.Rows, m.Cols
		w.dirty = true
	case MsgSetTheme:
		w.dirty = true
	case MsgEnableMouse:
		w.mouseEnabled = true
		w.out.Write([]byte("\033[?1000h\033[?1006h"))
	case MsgDisableMouse:
		w.mouseEnabled = false
		w.out.Write([]byte("\033[?1000l\033[?1006l"))
	case MsgVoiceState:
		w.status.VoiceMode = m.VoiceMode
		w.status.RecordingState = m.RecordingState
		w.status.SendMode = m.SendMode
		w.status.AutoVoiceEnabled = m.AutoVoiceEnabled
		w.status.QueueDepth = m.QueueDepth
		w.status.PushMeterLevel(m.MeterDB)
		w.dirty = true
	case MsgShutdown:
		w.redraw()
		return true
	}
	return false
}

// redraw repaints the banner (and modal overlay, if one is active)
// using a save/restore cursor pair so the child's own cursor position
// is undisturbed.
func (w *Writer) redraw() {
	defer func() {
		w.dirty = false
		w.pendingSince = time.Time{}
	}()

	if !w.statusExpireAt.IsZero() && time.Now().After(w.statusExpireAt) {
		w.status.Message = ""
		w.statusExpireAt = time.Time{}
	}

	var buf bytes.Buffer
	buf.WriteString("\0337") // save cursor
	buf.WriteString("\033[?25l")

	bannerRow := w.rows - reservedBannerRows + 1
	for r := 0; r < reservedBannerRows; r++ {
		fmt.Fprintf(&buf, "\033[%d;1H\033[2K", bannerRow+r)
	}
	fmt.Fprintf(&buf, "\033[%d;1H", bannerRow)
	buf.WriteString(w.renderBannerLine())
	fmt.Fprintf(&buf, "\033[%d;1H", bannerRow+1)
	buf.WriteString(w.renderInputLine())

	if w.overlay != voxmodel.OverlayNone {
		w.renderModalInto(&buf)
	}

	buf.WriteString("\033[?25h")
	buf.WriteString("\0338") // restore cursor
	w.out.Write(buf.Bytes())
}

func (w *Writer) renderBannerLine() string {
	mode := w.status.VoiceMode
	indicator := mode.Indicator()
	left := fmt.Sprintf(" %s %s | %s", indicator, mode.Label(), w.status.VoiceIntentMode.ShortLabel())
	if w.status.Message != "" {
		left += " | " + w.status.Message
	}
	if w.status.QueueDepth > 0 {
		left += fmt.Sprintf(" | queued %d", w.status.QueueDepth)
	}
	return overlaystring.SafePrefix(left, w.cols)
}

func (w *Writer) renderInputLine() string {
	meter := renderMeter(w.status.MeterDB)
	line := fmt.Sprintf(" %s sensitivity %.0fdB", meter, w.status.SensitivityDB)
	return overlaystring.SafePrefix(line, w.cols)
}

func renderMeter(db float64) string {
	const floor = -60.0
	const steps = 10
	frac := (db - floor) / -floor
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * steps)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", steps-filled) + "]"
}

// renderModalInto draws the active overlay's lines bottom-anchored,
// occupying the last len(w.overlayLines) rows the same way
// renderBannerLine anchors the banner to the last reservedBannerRows
// rows, so an open overlay never clears rows above its own height and
// the wrapped CLI's scrollback above it is left untouched.
func (w *Writer) renderModalInto(buf *bytes.Buffer) {
	height := len(w.overlayLines)
	top := w.rows - height + 1
	if top < 1 {
		top = 1
	}
	for i, line := range w.overlayLines {
		fmt.Fprintf(buf, "\033[%d;1H\033[2K", top+i)
		buf.WriteString(overlaystring.SafePrefix(line, w.cols))
	}
}

// SetStatus implements transcript.StatusSink by forwarding to the
// writer's message channel.
func (w *Writer) SetStatus(text string, clearAfter time.Duration) {
	w.Send(Msg{Kind: MsgStatus, StatusText: text, ClearAfter: clearAfter})
}
