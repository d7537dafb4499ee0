// Package eventloop owns VoxTerm's single-threaded orchestration loop:
// the select statement that ties pty output, parsed stdin events, voice
// worker results, and timers together and is the sole mutator of the
// session's voice/transcript/prompt state. Every other package either
// runs on its own goroutine and reports back over a channel, or is a
// passive helper the loop calls directly.
package eventloop

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/voxterm/voxterm/internal/activitylog"
	"github.com/voxterm/voxterm/internal/backend"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/inputparser"
	"github.com/voxterm/voxterm/internal/overlay"
	"github.com/voxterm/voxterm/internal/prompttracker"
	"github.com/voxterm/voxterm/internal/ptysession"
	"github.com/voxterm/voxterm/internal/transcript"
	"github.com/voxterm/voxterm/internal/voiceworker"
	"github.com/voxterm/voxterm/internal/voxmodel"
)

const refreshTickInterval = 100 * time.Millisecond
const shutdownGrace = 500 * time.Millisecond

// ctrlSpace is the byte most terminals send for Ctrl+Space, chosen as
// the manual capture toggle since it does not collide with any control
// character a wrapped CLI is likely to interpret itself.
const ctrlSpace byte = 0x00

// ctrlQ requests a clean shutdown.
const ctrlQ byte = 0x11

// ctrlC is forwarded to the CLI, or cancels an in-flight capture.
const ctrlC byte = 0x03

// Loop is VoxTerm's single-goroutine event loop: pty output, parsed
// stdin, voice-worker results, resize signals, and a refresh ticker all
// funnel through one select so session state is only ever mutated from
// one goroutine. Construct with New and run with Run; Run blocks until
// the wrapped CLI exits or the operator requests shutdown.
type Loop struct {
	session *ptysession.Session
	writer  *overlay.Writer
	worker  *voiceworker.Worker
	tracker *prompttracker.Tracker
	logger  *activitylog.Logger

	queue  *transcript.Queue
	parser *inputparser.Parser

	cfg     config.VoicePipelineConfig
	backend backend.Backend

	sendMode         voxmodel.SendMode
	autoVoiceEnabled bool

	lastEnterAt            *time.Time
	autoTriggeredSinceProm bool

	mu              sync.Mutex
	captureInFlight bool
	captureCancel   context.CancelFunc
	captureStarted  time.Time
}

// New assembles a Loop from its already-constructed components.
func New(
	session *ptysession.Session,
	writer *overlay.Writer,
	worker *voiceworker.Worker,
	tracker *prompttracker.Tracker,
	logger *activitylog.Logger,
	cfg config.VoicePipelineConfig,
	be backend.Backend,
	sendMode voxmodel.SendMode,
	autoVoiceEnabled bool,
) *Loop {
	return &Loop{
		session:          session,
		writer:           writer,
		worker:           worker,
		tracker:          tracker,
		logger:           logger,
		queue:            transcript.NewQueue(),
		parser:           inputparser.New(),
		cfg:              cfg,
		backend:          be,
		sendMode:         sendMode,
		autoVoiceEnabled: autoVoiceEnabled,
	}
}

// Run drives the loop until the wrapped CLI exits, stdin hits EOF, or
// the operator requests shutdown with Ctrl+Q. Its deferred shutdown
// cancels any capture and stops the wrapped CLI on every exit path; the
// terminal mode itself is restored by the caller.
func (l *Loop) Run(ctx context.Context, stdin *os.File, stdinFD int) error {
	ptyOutput := make(chan []byte, 16)
	ptyErr := make(chan error, 1)
	go func() {
		ptyErr <- l.session.PipeOutput(func(data []byte) {
			chunk := append([]byte(nil), data...)
			ptyOutput <- chunk
		})
	}()

	stdinCh := make(chan []byte, 16)
	stdinErr := make(chan error, 1)
	go readLoop(stdin, stdinCh, stdinErr)

	childDone := make(chan error, 1)
	go func() { childDone <- l.session.Wait() }()

	sigwinch := make(chan os.Signal, 1)
	signal.Notify(sigwinch, syscall.SIGWINCH)
	defer signal.Stop(sigwinch)

	ticker := time.NewTicker(refreshTickInterval)
	defer ticker.Stop()

	defer l.shutdown()

	// Apply the reserved-rows sizing once up front; runSession starts the
	// pty before the loop exists and cannot call back into it.
	l.handleResize(stdinFD)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data := <-ptyOutput:
			now := time.Now()
			l.tracker.FeedOutput(now, data)
			l.writer.Send(overlay.Msg{Kind: overlay.MsgPtyOutput, Data: data})
			l.tryFlush(now)

		case err := <-ptyErr:
			return err

		case data := <-stdinCh:
			l.handleInput(data)

		case <-stdinErr:
			l.requestShutdown()
			return nil

		case res := <-l.worker.Results():
			l.handleVoiceResult(res)

		case <-sigwinch:
			l.handleResize(stdinFD)

		case <-ticker.C:
			l.onTick()

		case err := <-childDone:
			return err
		}
	}
}

func readLoop(f *os.File, out chan<- []byte, errc chan<- error) {
	buf := make([]byte, 1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			errc <- err
			return
		}
	}
}

func (l *Loop) handleInput(raw []byte) {
	events := l.parser.Feed(raw)
	l.tracker.NoteActivity(time.Now())

	swallow := false
	for _, ev := range events {
		switch ev.Kind {
		case inputparser.EventCtrl:
			switch ev.Ctrl {
			case ctrlC:
				if l.isCapturing() {
					l.cancelCapture()
				} else {
					l.session.WriteRaw([]byte{ctrlC})
				}
				swallow = true
			case ctrlSpace:
				l.toggleManualCapture()
				swallow = true
			case ctrlQ:
				l.requestShutdown()
				swallow = true
			}
		case inputparser.EventMouse:
			// Button hit-testing against the banner's clickable regions
			// is not wired; mouse events are otherwise informational.
		}
	}

	if swallow && len(raw) <= 2 {
		// The chunk was entirely one of the intercepted control bytes;
		// nothing further to forward.
		return
	}
	if !swallow {
		l.session.WriteRaw(raw)
	}
}

func (l *Loop) isCapturing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.captureInFlight
}

func (l *Loop) toggleManualCapture() {
	if l.isCapturing() {
		l.cancelCapture()
		return
	}
	l.startCapture(voxmodel.TriggerManual)
}

func (l *Loop) startCapture(trigger voxmodel.VoiceCaptureTrigger) {
	l.mu.Lock()
	if l.captureInFlight {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.captureInFlight = true
	l.captureCancel = cancel
	l.captureStarted = time.Now()
	l.mu.Unlock()

	if trigger == voxmodel.TriggerAuto {
		l.autoTriggeredSinceProm = true
	}

	triggerLabel := "manual"
	if trigger == voxmodel.TriggerAuto {
		triggerLabel = "auto"
	}
	l.logger.CaptureStarted(triggerLabel)
	l.syncVoiceState()

	go l.worker.RunCapture(ctx)
}

func (l *Loop) cancelCapture() {
	l.mu.Lock()
	cancel := l.captureCancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (l *Loop) handleVoiceResult(res voiceworker.Result) {
	l.mu.Lock()
	durationMS := time.Since(l.captureStarted).Milliseconds()
	l.captureInFlight = false
	l.captureCancel = nil
	l.mu.Unlock()

	l.logger.CaptureStopped(res.Metrics.StopReason.Label(), durationMS)

	switch res.Kind {
	case voiceworker.ResultTranscript:
		dropped := l.queue.Push(transcript.Pending{Text: res.Text, Source: res.Source, Mode: l.sendMode})
		if dropped {
			l.logger.TranscriptDropped("queue_overflow")
		}
		l.tryFlush(time.Now())
	case voiceworker.ResultEmpty:
		l.writer.SetStatus("No speech detected", 2*time.Second)
	case voiceworker.ResultError:
		l.logger.BackendError("voiceworker", res.Message)
		l.writer.SetStatus("Voice capture failed (see log)", 2*time.Second)
	}
	l.syncVoiceState()
}

func (l *Loop) tryFlush(now time.Time) {
	idleTimeout := time.Duration(l.cfg.TranscriptIdleMS) * time.Millisecond
	before := l.lastEnterAt
	l.lastEnterAt = transcript.TryFlushPending(l.queue, l.tracker, l.lastEnterAt, l.session, l.writer, now, idleTimeout)
	if l.lastEnterAt != before {
		l.autoTriggeredSinceProm = false
	}
	l.syncVoiceState()
}

func (l *Loop) onTick() {
	now := time.Now()
	l.tryFlush(now)
	l.maybeStartAutoVoice(now)
	l.syncVoiceState()
}

// maybeStartAutoVoice starts a new Auto capture when enabled, idle,
// queue-empty, and no capture is already running, and no auto-trigger
// has fired since the last prompt transition.
func (l *Loop) maybeStartAutoVoice(now time.Time) {
	if !l.autoVoiceEnabled || l.isCapturing() || l.queue.Len() > 0 || l.autoTriggeredSinceProm {
		return
	}
	idleMS := time.Duration(l.cfg.AutoVoiceIdleMS) * time.Millisecond
	if !l.tracker.IdleReady(now, idleMS) {
		return
	}
	l.startCapture(voxmodel.TriggerAuto)
}

// handleResize re-reads the outer terminal's size and applies it to both
// the wrapped CLI's pty (minus the overlay's reserved bottom rows, so
// the child never draws into the rows the banner redraws over) and the
// overlay writer (which draws against the outer terminal's full size).
// Called on every SIGWINCH, and once at Run startup so the pty's sizing
// does not depend on whatever size runSession happened to apply before
// the loop took over.
func (l *Loop) handleResize(fd int) {
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return
	}
	ptyRows := rows - overlay.ReservedBannerRows()
	if ptyRows < 1 {
		ptyRows = 1
	}
	l.session.Resize(ptyRows, cols)
	l.writer.Send(overlay.Msg{Kind: overlay.MsgResize, Rows: rows, Cols: cols})
}

func (l *Loop) syncVoiceState() {
	recState := voxmodel.RecordingIdle
	if l.isCapturing() {
		recState = voxmodel.RecordingActive
	}
	mode := voxmodel.VoiceModeIdle
	switch {
	case l.isCapturing():
		mode = voxmodel.VoiceModeManual
	case l.autoVoiceEnabled:
		mode = voxmodel.VoiceModeAuto
	}
	l.writer.Send(overlay.Msg{
		Kind:             overlay.MsgVoiceState,
		VoiceMode:        mode,
		RecordingState:   recState,
		SendMode:         l.sendMode,
		AutoVoiceEnabled: l.autoVoiceEnabled,
		QueueDepth:       l.queue.Len(),
		MeterDB:          -96.0,
	})
}

func (l *Loop) requestShutdown() {
	l.cancelCapture()
	l.writer.Send(overlay.Msg{Kind: overlay.MsgShutdown})
}

func (l *Loop) shutdown() {
	l.cancelCapture()
	l.session.Shutdown(shutdownGrace)
}
