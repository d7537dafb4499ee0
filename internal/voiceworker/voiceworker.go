// Package voiceworker runs one capture-to-transcript cycle on its own
// goroutine: it drives the audio recorder and VAD engine through a
// CaptureState machine, hands the resulting PCM to a Transcriber, and
// reports back on a result channel so the event loop never blocks
// waiting on audio hardware or inference.
package voiceworker

import (
	"context"
	"fmt"
	"time"

	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/stt"
	"github.com/voxterm/voxterm/internal/vad"
	"github.com/voxterm/voxterm/internal/voxmodel"
)

// ResultKind distinguishes the three shapes a capture cycle can end
// in: a non-empty transcript, a capture with no recognizable speech,
// or a hard error.
type ResultKind int

const (
	ResultTranscript ResultKind = iota
	ResultEmpty
	ResultError
)

// Result is published on the worker's output channel once a capture
// cycle completes.
type Result struct {
	Kind    ResultKind
	Text    string
	Source  voxmodel.VoiceCaptureSource
	Message string
	Metrics vad.CaptureMetrics
}

// Worker owns one capture cycle's goroutine and cancellation.
type Worker struct {
	cfg        config.VoicePipelineConfig
	recorder   *audio.Recorder
	engine     vad.Engine
	transcriber stt.Transcriber

	results chan Result
}

// New builds a Worker from a resolved pipeline config. transcriber may
// be nil, in which case every cycle that captured audio reports
// ResultError with a message naming the python fallback pipeline; no
// fallback is run.
func New(cfg config.VoicePipelineConfig, recorder *audio.Recorder, transcriber stt.Transcriber) (*Worker, error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Worker{
		cfg:         cfg,
		recorder:    recorder,
		engine:      engine,
		transcriber: transcriber,
		results:     make(chan Result, 1),
	}, nil
}

func buildEngine(cfg config.VoicePipelineConfig) (vad.Engine, error) {
	switch cfg.VADEngine {
	case config.VADEngineEarshot:
		return vad.NewEarshot(cfg.VADThresholdDB, cfg.VADFrameMS)
	default:
		return vad.NewSimple(cfg.VADThresholdDB), nil
	}
}

// Results returns the channel cycle outcomes are published on.
func (w *Worker) Results() <-chan Result { return w.results }

// RunCapture drives one full capture cycle: start the recorder, feed
// frames through the VAD/capture state machine until a stop reason
// fires or ctx is cancelled, then transcribe the accumulated audio.
// It never returns early on caller cancellation without first telling
// the recorder to stop, so the audio device is always released.
func (w *Worker) RunCapture(ctx context.Context) {
	frameSamples := int(int64(w.cfg.SampleRate) * w.cfg.VADFrameMS / 1000)
	dispatcher, _, err := w.recorder.Start(w.cfg.InputDevice, w.cfg.SampleRate, frameSamples, w.cfg.ChannelCapacity)
	if err != nil {
		w.emit(Result{Kind: ResultError, Message: err.Error()})
		return
	}
	defer w.recorder.Stop()

	captureCfg := vad.CaptureConfig{
		FrameMS:                w.cfg.VADFrameMS,
		SilenceDurationMS:      w.cfg.SilenceTailMS,
		MaxRecordingDurationMS: w.cfg.MaxCaptureMS,
		MinRecordingDurationMS: w.cfg.MinSpeechMSBeforeStop,
	}
	state := vad.NewCaptureState(captureCfg)
	smoother := vad.NewSmoother(w.cfg.VADSmoothingFrames)
	acc := vad.NewFrameAccumulator(w.cfg.SampleRate, w.cfg.BufferMS, w.cfg.LookbackMS)

	var stopReason vad.StopReason
captureLoop:
	for {
		select {
		case <-ctx.Done():
			stopReason = state.ManualStop()
			break captureLoop
		case frame, ok := <-dispatcher.Frames():
			if !ok {
				stopReason = state.ManualStop()
				break captureLoop
			}
			decision := w.engine.ProcessFrame(frame.Samples)
			label := smoother.SmoothDecision(decision)
			acc.PushFrame(frame.Samples, label)
			if reason := state.OnFrame(label); reason != nil {
				stopReason = *reason
				break captureLoop
			}
		}
	}
	audioSamples := acc.IntoAudio(stopReason)
	w.transcribe(audioSamples, stopReason)
}

func (w *Worker) transcribe(samples []float32, reason vad.StopReason) {
	metrics := vad.CaptureMetrics{StopReason: reason}
	if len(samples) == 0 {
		w.emit(Result{Kind: ResultEmpty, Metrics: metrics})
		return
	}
	if w.transcriber == nil {
		w.emit(Result{Kind: ResultError, Message: "native transcriber unavailable; configure the python fallback pipeline", Metrics: metrics})
		return
	}

	timeout := time.Duration(w.cfg.STTTimeoutMS) * time.Millisecond
	done := make(chan struct{})
	var result stt.Result
	var err error
	go func() {
		result, err = w.transcriber.Transcribe(samples, stt.Options{
			Language:    w.cfg.Language,
			BeamSize:    w.cfg.WhisperBeamSize,
			Temperature: w.cfg.WhisperTemp,
		})
		close(done)
	}()

	select {
	case <-done:
		if err != nil {
			w.emit(Result{Kind: ResultError, Message: err.Error(), Metrics: metrics})
			return
		}
		if result.Text == "" {
			w.emit(Result{Kind: ResultEmpty, Metrics: metrics})
			return
		}
		w.emit(Result{Kind: ResultTranscript, Text: result.Text, Source: voxmodel.SourceNative, Metrics: metrics})
	case <-time.After(timeout):
		w.emit(Result{Kind: ResultError, Message: fmt.Sprintf("transcription timed out after %s", timeout), Metrics: metrics})
	}
}

func (w *Worker) emit(r Result) {
	select {
	case w.results <- r:
	default:
		// A previous result is still pending; the event loop is expected
		// to drain before starting another cycle, so this should not
		// happen in practice.
	}
}
