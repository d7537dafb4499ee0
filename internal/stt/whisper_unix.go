//go:build unix

package stt

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperTranscriber loads a whisper.cpp model once and creates a
// fresh inference context per Transcribe call, mirroring the one
// model/many-contexts lifecycle whisper.cpp requires.
type WhisperTranscriber struct {
	mu         sync.Mutex
	model      whisperlib.Model
	sampleRate int
}

// NewWhisper loads modelPath. sampleRate must match the rate samples
// will be delivered at (the recorder requests this rate from the
// capture device; whisper.cpp expects 16kHz).
func NewWhisper(modelPath string, sampleRate int) (*WhisperTranscriber, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrUnavailable)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %q: %v", ErrUnavailable, modelPath, err)
	}
	return &WhisperTranscriber{model: model, sampleRate: sampleRate}, nil
}

func (w *WhisperTranscriber) SampleRate() int { return w.sampleRate }

// Transcribe runs one-shot inference over a complete utterance. Each
// call gets its own whisper context so concurrent captures (unlikely
// under VoxTerm's single-capture-at-a-time model, but safe regardless)
// never share mutable inference state.
func (w *WhisperTranscriber) Transcribe(samples []float32, opts Options) (Result, error) {
	w.mu.Lock()
	model := w.model
	w.mu.Unlock()
	if model == nil {
		return Result{}, fmt.Errorf("%w: model closed", ErrUnavailable)
	}

	wctx, err := model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		// Non-fatal: whisper.cpp falls back to auto-detect.
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return Result{Text: joinSegments(parts), Language: lang}, nil
}

func (w *WhisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
