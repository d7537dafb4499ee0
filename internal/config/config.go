// Package config resolves VoxTerm's immutable VoicePipelineConfig and the
// surrounding CLI-flag/environment/theme settings, validating ranges and
// forbidden characters before any terminal mode change.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// VADEngineKind selects which VAD implementation a capture uses. Modeled
// as a closed tagged variant rather than an interface hierarchy.
type VADEngineKind string

const (
	VADEngineSimple  VADEngineKind = "simple"
	VADEngineEarshot VADEngineKind = "earshot"
)

// Defaults carry the tuned constants validated for voice capture.
const (
	DefaultVoiceSampleRate        = 16_000
	DefaultVoiceMaxCaptureMS      = 30_000
	DefaultVoiceSilenceTailMS     = 1_000
	DefaultVoiceMinSpeechMS       = 300
	DefaultVoiceLookbackMS        = 500
	DefaultVoiceBufferMS          = 30_000
	DefaultVoiceChannelCapacity   = 100
	DefaultVoiceSTTTimeoutMS      = 60_000
	DefaultVoiceVADThresholdDB    = -55.0
	DefaultVoiceVADFrameMS        = 20
	DefaultVoiceVADSmoothingFrame = 3
	DefaultMicMeterAmbientMS      = 3_000
	DefaultMicMeterSpeechMS       = 3_000
	MinMicMeterSampleMS           = 500
	MaxMicMeterSampleMS           = 30_000
	DefaultAutoVoiceIdleMS        = 1_500
	DefaultTranscriptIdleMS       = 250

	MaxCodexArgs        = 64
	MaxCodexArgBytes    = 8 * 1024
	MaxCaptureHardLimit = 60_000
)

var iso639_1Codes = map[string]bool{}

func init() {
	for _, c := range strings.Fields(
		"af am ar az be bg bn bs ca cs cy da de el en es et eu fa fi fil fr ga gl gu he hi hr hu hy id " +
			"is it ja jv ka kk km kn ko lo lt lv mk ml mn mr ms my ne nl no pa pl pt ro ru si sk sl sq sr sv " +
			"sw ta te th tr uk ur vi zh",
	) {
		iso639_1Codes[c] = true
	}
}

// forbiddenDeviceChars blocks shell metacharacters from reaching a
// subprocess invocation built from a user-supplied device substring.
var forbiddenDeviceChars = []rune{';', '|', '&', '$', '`', '<', '>', '\\', '\'', '"'}

// VoicePipelineConfig is the immutable bundle threaded through the audio,
// VAD, STT, and voice-worker packages. It never mutates after the root
// command has built and validated it.
type VoicePipelineConfig struct {
	SampleRate            int
	MaxCaptureMS          int64
	SilenceTailMS         int64
	MinSpeechMSBeforeStop int64
	LookbackMS            int64
	BufferMS              int64
	ChannelCapacity       int
	STTTimeoutMS          int64
	VADThresholdDB        float64
	VADFrameMS            int64
	VADSmoothingFrames    int
	VADEngine             VADEngineKind
	PythonFallbackAllowed bool
	AutoVoiceIdleMS       int64
	TranscriptIdleMS      int64

	Language         string
	WhisperModel     string
	WhisperModelPath string
	WhisperBeamSize  int
	WhisperTemp      float64
	InputDevice      string
	PipelineScript   string
}

// DefaultVoicePipelineConfig returns the tuned defaults for voice capture.
func DefaultVoicePipelineConfig() VoicePipelineConfig {
	return VoicePipelineConfig{
		SampleRate:            DefaultVoiceSampleRate,
		MaxCaptureMS:          DefaultVoiceMaxCaptureMS,
		SilenceTailMS:         DefaultVoiceSilenceTailMS,
		MinSpeechMSBeforeStop: DefaultVoiceMinSpeechMS,
		LookbackMS:            DefaultVoiceLookbackMS,
		BufferMS:              DefaultVoiceBufferMS,
		ChannelCapacity:       DefaultVoiceChannelCapacity,
		STTTimeoutMS:          DefaultVoiceSTTTimeoutMS,
		VADThresholdDB:        DefaultVoiceVADThresholdDB,
		VADFrameMS:            DefaultVoiceVADFrameMS,
		VADSmoothingFrames:    DefaultVoiceVADSmoothingFrame,
		VADEngine:             VADEngineSimple,
		PythonFallbackAllowed: true,
		AutoVoiceIdleMS:       DefaultAutoVoiceIdleMS,
		TranscriptIdleMS:      DefaultTranscriptIdleMS,
		Language:              "auto",
		WhisperBeamSize:       1,
		WhisperTemp:           0,
	}
}

// Validate enforces the configuration-error taxonomy: invalid values
// here must fail before any terminal mode change.
func (c VoicePipelineConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("voice-sample-rate must be positive, got %d", c.SampleRate)
	}
	if c.MaxCaptureMS <= 0 || c.MaxCaptureMS > MaxCaptureHardLimit {
		return fmt.Errorf("voice-max-capture-ms must be in (0, %d], got %d", MaxCaptureHardLimit, c.MaxCaptureMS)
	}
	if c.VADFrameMS <= 0 {
		return fmt.Errorf("voice-vad-frame-ms must be positive, got %d", c.VADFrameMS)
	}
	if c.VADEngine == VADEngineEarshot {
		switch c.VADFrameMS {
		case 10, 20, 30:
		default:
			return fmt.Errorf("earshot vad engine requires voice-vad-frame-ms in {10,20,30}, got %d", c.VADFrameMS)
		}
	}
	if c.VADSmoothingFrames < 1 {
		return fmt.Errorf("voice-vad-smoothing-frames must be >= 1, got %d", c.VADSmoothingFrames)
	}
	if c.ChannelCapacity <= 0 {
		return fmt.Errorf("voice-channel-capacity must be positive, got %d", c.ChannelCapacity)
	}
	if c.WhisperBeamSize < 1 {
		return fmt.Errorf("whisper-beam-size must be >= 1, got %d", c.WhisperBeamSize)
	}
	if c.Language != "" && c.Language != "auto" && !iso639_1Codes[strings.ToLower(c.Language)] {
		return fmt.Errorf("lang %q is not a recognized ISO-639-1 code", c.Language)
	}
	if err := validateDeviceString(c.InputDevice); err != nil {
		return err
	}
	return nil
}

func validateDeviceString(device string) error {
	for _, r := range device {
		for _, bad := range forbiddenDeviceChars {
			if r == bad {
				return fmt.Errorf("input-device contains forbidden character %q", string(r))
			}
		}
	}
	return nil
}

// ValidateCodexArgs enforces the arg-count/arg-size limits the backend
// registry applies when combining a configured codex command with extra
// tokens.
func ValidateCodexArgs(args []string) error {
	if len(args) > MaxCodexArgs {
		return fmt.Errorf("codex args: %d exceeds maximum of %d", len(args), MaxCodexArgs)
	}
	for _, a := range args {
		if len(a) > MaxCodexArgBytes {
			return fmt.Errorf("codex arg exceeds maximum size of %d bytes", MaxCodexArgBytes)
		}
	}
	return nil
}

// FileOverlay is the optional ~/.voxterm/config.yaml layer, applied beneath
// CLI flags but above built-in defaults.
type FileOverlay struct {
	Voice struct {
		SampleRate     *int     `yaml:"sample_rate"`
		MaxCaptureMS   *int64   `yaml:"max_capture_ms"`
		VADThresholdDB *float64 `yaml:"vad_threshold_db"`
		VADEngine      string   `yaml:"vad_engine"`
	} `yaml:"voice"`
	Theme   string `yaml:"theme"`
	NoColor bool   `yaml:"no_color"`
}

// ConfigDir returns VoxTerm's configuration directory (~/.voxterm/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".voxterm")
	}
	return filepath.Join(home, ".voxterm")
}

// LoadFileOverlay reads the optional config file. A missing file is not an
// error; it yields a zero-value overlay.
func LoadFileOverlay(path string) (*FileOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileOverlay{}, nil
		}
		return nil, err
	}
	var overlay FileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &overlay, nil
}

// ApplyFileOverlay merges a FileOverlay beneath any value the caller has
// already set from flags (named in flagsSeen); nil or empty overlay
// fields are considered unset.
func ApplyFileOverlay(cfg VoicePipelineConfig, overlay *FileOverlay, flagsSeen map[string]bool) VoicePipelineConfig {
	if overlay == nil {
		return cfg
	}
	if overlay.Voice.SampleRate != nil && !flagsSeen["voice-sample-rate"] {
		cfg.SampleRate = *overlay.Voice.SampleRate
	}
	if overlay.Voice.MaxCaptureMS != nil && !flagsSeen["voice-max-capture-ms"] {
		cfg.MaxCaptureMS = *overlay.Voice.MaxCaptureMS
	}
	if overlay.Voice.VADThresholdDB != nil && !flagsSeen["voice-vad-threshold-db"] {
		cfg.VADThresholdDB = *overlay.Voice.VADThresholdDB
	}
	if overlay.Voice.VADEngine != "" && !flagsSeen["voice-vad-engine"] {
		cfg.VADEngine = VADEngineKind(strings.ToLower(overlay.Voice.VADEngine))
	}
	return cfg
}
