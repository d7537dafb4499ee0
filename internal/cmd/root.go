// Package cmd wires VoxTerm's cobra root command: flag parsing,
// config-file overlay, and handoff into the event loop.
package cmd

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/voxterm/voxterm/internal/backend"
	"github.com/voxterm/voxterm/internal/config"
)

// Flags holds every CLI-settable option, mirrored into a
// config.VoicePipelineConfig plus the backend/session options that
// live outside it.
type Flags struct {
	Backend       string
	CustomCommand string
	AutoVoice     bool
	NoColor       bool
	ConfigPath    string
	LogFile       string
	SendMode      string
	PromptRegex   string

	SampleRate     int
	MaxCaptureMS   int64
	SilenceTailMS  int64
	VADThresholdDB float64
	VADEngine      string
	Language       string
	WhisperModel   string
	InputDevice    string
}

// NewRootCmd builds VoxTerm's root cobra command.
func NewRootCmd() *cobra.Command {
	var flags Flags
	flagsSeen := map[string]bool{}

	rootCmd := &cobra.Command{
		Use:   "voxterm",
		Short: "Voice-dictation overlay for terminal AI assistants",
		Long:  "voxterm wraps an interactive AI CLI in a pty and injects voice-transcribed text as if typed, with a status banner showing capture state and sensitivity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Flags().Visit(func(f *pflag.Flag) { flagsSeen[f.Name] = true })

			cfg := buildPipelineConfig(flags)
			overlay, err := config.LoadFileOverlay(resolveConfigPath(flags.ConfigPath))
			if err != nil {
				return err
			}
			cfg = config.ApplyFileOverlay(cfg, overlay, flagsSeen)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid voice configuration: %w", err)
			}

			reg := backend.NewRegistry()
			var be backend.Backend
			if flags.CustomCommand != "" {
				be, err = backend.ResolveCustom(flags.CustomCommand)
			} else {
				b, ok := reg.Lookup(flags.Backend)
				if !ok {
					return fmt.Errorf("unknown backend %q", flags.Backend)
				}
				be = b
			}
			if err != nil {
				return err
			}
			if flags.PromptRegex != "" {
				re, err := regexp.Compile(flags.PromptRegex)
				if err != nil {
					return fmt.Errorf("invalid --prompt-regex: %w", err)
				}
				be.PromptPattern = re
			}

			return runSession(be, cfg, flags, args)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVar(&flags.Backend, "backend", "codex", "wrapped CLI preset (codex, claude, gemini, aider, opencode)")
	fs.StringVar(&flags.CustomCommand, "custom-command", "", "custom CLI command line, overrides --backend")
	fs.BoolVar(&flags.AutoVoice, "auto-voice", false, "start in Auto voice mode instead of Manual")
	fs.BoolVar(&flags.NoColor, "no-color", false, "disable color output regardless of terminal capability")
	fs.StringVar(&flags.ConfigPath, "config", "", "path to config.yaml (default ~/.voxterm/config.yaml)")
	fs.StringVar(&flags.LogFile, "log-file", "", "path to the JSONL activity log (disabled if empty)")
	fs.StringVar(&flags.SendMode, "send-mode", "auto", "transcript delivery mode: auto or insert")
	fs.StringVar(&flags.PromptRegex, "prompt-regex", "", "override the backend's prompt-detection regex")

	fs.IntVar(&flags.SampleRate, "voice-sample-rate", config.DefaultVoiceSampleRate, "capture sample rate in Hz")
	fs.Int64Var(&flags.MaxCaptureMS, "voice-max-capture-ms", config.DefaultVoiceMaxCaptureMS, "hard cap on a single capture's duration")
	fs.Int64Var(&flags.SilenceTailMS, "voice-silence-duration-ms", config.DefaultVoiceSilenceTailMS, "trailing silence required to stop a capture")
	fs.Float64Var(&flags.VADThresholdDB, "voice-vad-threshold-db", config.DefaultVoiceVADThresholdDB, "VAD speech/silence threshold in dBFS")
	fs.StringVar(&flags.VADEngine, "voice-vad-engine", string(config.VADEngineSimple), "VAD engine: simple or earshot")
	fs.StringVar(&flags.Language, "lang", "auto", "ISO-639-1 transcription language, or auto")
	fs.StringVar(&flags.WhisperModel, "whisper-model-path", "", "path to a whisper.cpp ggml model file")
	fs.StringVar(&flags.InputDevice, "input-device", "", "capture device name substring, default system input")

	rootCmd.AddCommand(newListDevicesCmd())

	return rootCmd
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(config.ConfigDir(), "config.yaml")
}

func resolveLogPath(f Flags) (path string, enabled bool) {
	if f.LogFile != "" {
		return f.LogFile, true
	}
	return filepath.Join(config.ConfigDir(), "activity.log"), false
}

func buildPipelineConfig(f Flags) config.VoicePipelineConfig {
	cfg := config.DefaultVoicePipelineConfig()
	cfg.SampleRate = f.SampleRate
	cfg.MaxCaptureMS = f.MaxCaptureMS
	cfg.SilenceTailMS = f.SilenceTailMS
	cfg.VADThresholdDB = f.VADThresholdDB
	cfg.VADEngine = config.VADEngineKind(f.VADEngine)
	cfg.Language = f.Language
	cfg.WhisperModelPath = f.WhisperModel
	cfg.InputDevice = f.InputDevice
	return cfg
}
