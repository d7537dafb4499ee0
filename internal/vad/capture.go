package vad

// StopReason explains why a capture ended.
type StopReason struct {
	Kind   StopKind
	TailMS int64  // valid when Kind == StopVadSilence
	Err    string // valid when Kind == StopError
}

type StopKind int

const (
	StopVadSilence StopKind = iota
	StopMaxDuration
	StopManualStop
	StopTimeout
	StopError
)

func (r StopReason) Label() string {
	switch r.Kind {
	case StopVadSilence:
		return "vad_silence"
	case StopMaxDuration:
		return "max_duration"
	case StopManualStop:
		return "manual_stop"
	case StopTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// CaptureMetrics is the per-capture record returned alongside audio.
type CaptureMetrics struct {
	CaptureMS       int64
	SpeechMS        int64
	SilenceTailMS   int64
	FramesProcessed int
	FramesDropped   int
	StopReason      StopReason
}

// CaptureResult is the caller-facing outcome of a capture.
type CaptureResult struct {
	Audio   []float32
	Metrics CaptureMetrics
}

type frameRecord struct {
	samples []float32
	label   FrameLabel
}

// FrameAccumulator is a bounded ring buffer (by total sample count)
// holding the frames of an in-progress capture. Invariant:
// TotalSamples() <= maxSamples after every push.
type FrameAccumulator struct {
	frames          []frameRecord
	totalSamples    int
	maxSamples      int
	lookbackSamples int
}

// NewFrameAccumulator builds an accumulator sized from buffer_ms /
// lookback_ms at the given sample rate.
func NewFrameAccumulator(sampleRate int, bufferMS, lookbackMS int64) *FrameAccumulator {
	max := int((bufferMS * int64(sampleRate)) / 1000)
	if max < 1 {
		max = 1
	}
	lookback := int((lookbackMS * int64(sampleRate)) / 1000)
	return &FrameAccumulator{maxSamples: max, lookbackSamples: lookback}
}

func (a *FrameAccumulator) TotalSamples() int { return a.totalSamples }

func (a *FrameAccumulator) IsEmpty() bool { return a.totalSamples == 0 }

// PushFrame appends a frame, evicting the oldest frames until
// TotalSamples() <= maxSamples.
func (a *FrameAccumulator) PushFrame(samples []float32, label FrameLabel) {
	a.totalSamples += len(samples)
	a.frames = append(a.frames, frameRecord{samples: samples, label: label})
	for a.totalSamples > a.maxSamples && len(a.frames) > 0 {
		a.totalSamples -= len(a.frames[0].samples)
		a.frames = a.frames[1:]
	}
}

// IntoAudio flattens the accumulated frames into one PCM slice. On a
// VadSilence stop, trailing silence beyond lookback_ms is trimmed first;
// other stop reasons preserve the full tail.
func (a *FrameAccumulator) IntoAudio(reason StopReason) []float32 {
	if reason.Kind == StopVadSilence {
		a.trimTrailingSilence()
	}
	audio := make([]float32, 0, a.totalSamples)
	for _, f := range a.frames {
		audio = append(audio, f.samples...)
	}
	return audio
}

func (a *FrameAccumulator) trimTrailingSilence() {
	trailing := 0
	for i := len(a.frames) - 1; i >= 0; i-- {
		if a.frames[i].label != LabelSilence {
			break
		}
		trailing += len(a.frames[i].samples)
	}
	excess := trailing - a.lookbackSamples
	if excess <= 0 {
		return
	}
	target := a.totalSamples - excess

	for a.totalSamples > target && len(a.frames) > 0 {
		last := &a.frames[len(a.frames)-1]
		if last.label != LabelSilence {
			break
		}
		recordLen := len(last.samples)
		if recordLen == 0 {
			a.frames = a.frames[:len(a.frames)-1]
			continue
		}
		remaining := a.totalSamples - target
		remove := remaining
		if remove > recordLen {
			remove = recordLen
		}
		if remove >= recordLen {
			a.totalSamples -= recordLen
			a.frames = a.frames[:len(a.frames)-1]
		} else {
			keep := recordLen - remove
			last.samples = last.samples[:keep]
			a.totalSamples -= remove
		}
	}
}

// CaptureConfig is the subset of VoicePipelineConfig the state machine
// needs. Kept separate from internal/config to avoid an import cycle
// between config and vad.
type CaptureConfig struct {
	FrameMS                int64
	SilenceDurationMS      int64
	MaxRecordingDurationMS int64
	MinRecordingDurationMS int64
}

// CaptureState tracks speech/silence/total duration for one capture and
// decides, frame by frame, whether the capture should stop.
type CaptureState struct {
	cfg             CaptureConfig
	speechMS        int64
	silenceStreakMS int64
	totalMS         int64
}

func NewCaptureState(cfg CaptureConfig) *CaptureState {
	return &CaptureState{cfg: cfg}
}

// OnFrame advances the state machine by one frame and returns a
// non-nil StopReason if the capture should end.
//
// Stop decision, evaluated in order:
//  1. total_ms >= max_recording_duration_ms -> MaxDuration
//  2. speech_ms > 0 AND total_ms >= min_recording_duration_ms AND
//     silence_streak_ms >= silence_duration_ms -> VadSilence{tail_ms}
//
// Rule 2 requires prior speech, so a capture started in a quiet room
// never early-stops.
func (c *CaptureState) OnFrame(label FrameLabel) *StopReason {
	switch label {
	case LabelSpeech:
		c.speechMS += c.cfg.FrameMS
		c.silenceStreakMS = 0
	case LabelSilence:
		c.silenceStreakMS += c.cfg.FrameMS
	case LabelUncertain:
		c.silenceStreakMS = 0
	}
	c.totalMS += c.cfg.FrameMS

	if c.totalMS >= c.cfg.MaxRecordingDurationMS {
		return &StopReason{Kind: StopMaxDuration}
	}
	if c.speechMS > 0 && c.totalMS >= c.cfg.MinRecordingDurationMS && c.silenceStreakMS >= c.cfg.SilenceDurationMS {
		return &StopReason{Kind: StopVadSilence, TailMS: c.silenceStreakMS}
	}
	return nil
}

// OnTimeout advances total_ms without a new frame (used when the audio
// channel stalls) and returns StopTimeout once the max duration elapses.
func (c *CaptureState) OnTimeout() *StopReason {
	c.totalMS += c.cfg.FrameMS
	if c.totalMS >= c.cfg.MaxRecordingDurationMS {
		return &StopReason{Kind: StopTimeout}
	}
	return nil
}

func (c *CaptureState) ManualStop() StopReason { return StopReason{Kind: StopManualStop} }

func (c *CaptureState) TotalMS() int64 { return c.totalMS }

func (c *CaptureState) SpeechMS() int64 { return c.speechMS }

func (c *CaptureState) SilenceTailMS() int64 { return c.silenceStreakMS }

// OfflineCaptureFromPCM drives the capture state machine over a
// preloaded PCM slice, chunked to exact frame size with the last partial
// frame zero-padded. Used for deterministic benchmarks and tests.
func OfflineCaptureFromPCM(samples []float32, sampleRate int, cfg CaptureConfig, smoothingFrames int, bufferMS, lookbackMS int64, engine Engine) CaptureResult {
	frameSamples := int((int64(sampleRate) * cfg.FrameMS) / 1000)
	if frameSamples < 1 {
		frameSamples = 1
	}
	accumulator := NewFrameAccumulator(sampleRate, bufferMS, lookbackMS)
	state := NewCaptureState(cfg)
	smoother := NewSmoother(smoothingFrames)
	metrics := CaptureMetrics{StopReason: StopReason{Kind: StopMaxDuration}}
	var stopReason StopReason
	reasonSet := false

	for offset := 0; offset < len(samples); offset += frameSamples {
		if state.TotalMS() >= cfg.MaxRecordingDurationMS {
			break
		}
		end := offset + frameSamples
		if end > len(samples) {
			end = len(samples)
		}
		frame := make([]float32, frameSamples)
		copy(frame, samples[offset:end])

		decision := engine.ProcessFrame(frame)
		metrics.FramesProcessed++
		label := smoother.SmoothDecision(decision)
		accumulator.PushFrame(frame, label)

		if reason := state.OnFrame(label); reason != nil {
			stopReason = *reason
			reasonSet = true
			break
		}
	}

	if accumulator.IsEmpty() {
		return CaptureResult{Audio: nil, Metrics: metrics}
	}

	// The loop only exits without a reason when the input samples ran
	// out before OnFrame ever decided to stop; CaptureState.OnFrame
	// already applies rule 1 before rule 2, so a reason it did return is
	// never reclassified here.
	if !reasonSet {
		stopReason = StopReason{Kind: StopMaxDuration}
	}

	audio := accumulator.IntoAudio(stopReason)
	metrics.SpeechMS = state.SpeechMS()
	metrics.SilenceTailMS = state.SilenceTailMS()
	metrics.CaptureMS = state.TotalMS()
	metrics.StopReason = stopReason

	return CaptureResult{Audio: audio, Metrics: metrics}
}
