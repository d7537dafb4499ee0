//go:build !unix

package stt

import "fmt"

// WhisperTranscriber is unavailable on non-unix platforms: the
// whisper.cpp CGO bindings only ship build tags for unix targets.
// NewWhisper always returns ErrUnavailable here.
type WhisperTranscriber struct{}

func NewWhisper(modelPath string, sampleRate int) (*WhisperTranscriber, error) {
	return nil, fmt.Errorf("%w: native whisper bindings require a unix build", ErrUnavailable)
}

func (w *WhisperTranscriber) SampleRate() int { return 0 }

func (w *WhisperTranscriber) Transcribe(samples []float32, opts Options) (Result, error) {
	return Result{}, ErrUnavailable
}

func (w *WhisperTranscriber) Close() error { return nil }
