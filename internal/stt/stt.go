// Package stt wraps whisper.cpp's CGO bindings
// (github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper) behind a
// narrow Transcriber interface. Model load is a one-time cost at
// startup; each capture gets its own whisper context, since a whisper
// context is not itself safe for concurrent inference.
package stt

import (
	"fmt"
	"strings"
)

// Result is one completed transcription.
type Result struct {
	Text     string
	Language string
}

// Options configures a single Transcribe call.
type Options struct {
	Language  string // BCP-47/ISO-639-1, or "auto"
	BeamSize  int
	Temperature float64
}

// Transcriber turns mono float32 PCM at SampleRate into text.
type Transcriber interface {
	Transcribe(samples []float32, opts Options) (Result, error)
	SampleRate() int
	Close() error
}

// ErrUnavailable is returned by NewWhisper when the native bindings
// could not load a model. The session then runs without a native
// transcriber; no Python pipeline is started in its place.
var ErrUnavailable = fmt.Errorf("stt: native whisper backend unavailable")

func joinSegments(parts []string) string {
	return strings.Join(parts, " ")
}
