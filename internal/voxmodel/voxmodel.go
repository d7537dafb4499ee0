// Package voxmodel holds the small value types shared across voice,
// transcript, overlay and event-loop packages that do not have a single
// natural owning package.
package voxmodel

import "time"

// VoiceMode is the current voice-capture posture shown on the status line.
type VoiceMode int

const (
	VoiceModeAuto VoiceMode = iota
	VoiceModeManual
	VoiceModeIdle
)

func (m VoiceMode) Label() string {
	switch m {
	case VoiceModeAuto:
		return "Auto"
	case VoiceModeManual:
		return "Manual"
	default:
		return "Idle"
	}
}

func (m VoiceMode) Indicator() string {
	switch m {
	case VoiceModeAuto:
		return "◉" // ◉
	case VoiceModeManual:
		return "●" // ●
	default:
		return "○" // ○
	}
}

// VoiceIntentMode distinguishes whether a transcript is meant as a command
// to VoxTerm itself or dictation destined for the wrapped CLI.
type VoiceIntentMode int

const (
	IntentCommand VoiceIntentMode = iota
	IntentDictation
)

func (m VoiceIntentMode) Label() string {
	if m == IntentCommand {
		return "Command"
	}
	return "Dictation"
}

func (m VoiceIntentMode) ShortLabel() string {
	if m == IntentCommand {
		return "CMD"
	}
	return "DICT"
}

// RecordingState is the voice worker's current activity.
type RecordingState int

const (
	RecordingIdle RecordingState = iota
	RecordingActive
	RecordingProcessing
)

// Pipeline names which transcription path produced the last result.
type Pipeline int

const (
	PipelineNative Pipeline = iota
	PipelinePython
)

func (p Pipeline) Label() string {
	if p == PipelineNative {
		return "native"
	}
	return "python"
}

// SendMode controls whether a flushed transcript is auto-submitted or left
// for the user to edit in the wrapped CLI's input buffer.
type SendMode int

const (
	SendModeAuto SendMode = iota
	SendModeInsert
)

// HUDStyle names the banner style. The overlay writer reserves the same
// number of rows whatever the style.
type HUDStyle int

const (
	HUDStyleFull HUDStyle = iota
	HUDStyleMinimal
	HUDStyleHidden
)

// HUDRightPanel names the small live indicator for the right edge of the
// status banner. The overlay writer does not draw a right-edge indicator.
type HUDRightPanel int

const (
	HUDRightPanelRibbon HUDRightPanel = iota
	HUDRightPanelDots
	HUDRightPanelHeartbeat
	HUDRightPanelOff
)

const MeterHistoryMax = 24

// VoiceCaptureSource names which pipeline produced a transcript.
type VoiceCaptureSource int

const (
	SourceNative VoiceCaptureSource = iota
	SourcePython
)

func (s VoiceCaptureSource) Label() string {
	if s == SourceNative {
		return "native"
	}
	return "python"
}

// VoiceCaptureTrigger distinguishes an operator-initiated capture from
// one the auto-voice idle policy started.
type VoiceCaptureTrigger int

const (
	TriggerManual VoiceCaptureTrigger = iota
	TriggerAuto
)

// OverlayMode names the modal overlay currently occluding the status
// banner. At most one is active at a time.
type OverlayMode int

const (
	OverlayNone OverlayMode = iota
	OverlayHelp
	OverlayThemePicker
	OverlaySettings
)

// Button is a single clickable region on the status banner, in terminal
// columns and measured as a row offset counted up from the bottom of the
// screen.
type Button struct {
	StartCol    int
	EndCol      int
	RowFromBtm  int
	Action      string
}

// ButtonRegistry holds the currently visible clickable regions and answers
// hit-tests for incoming mouse clicks.
type ButtonRegistry struct {
	Buttons []Button
}

// HitTest returns the action bound to the button under (col, rowFromBottom),
// or "" if none matches.
func (r *ButtonRegistry) HitTest(col, rowFromBottom int) string {
	for _, b := range r.Buttons {
		if b.RowFromBtm == rowFromBottom && col >= b.StartCol && col <= b.EndCol {
			return b.Action
		}
	}
	return ""
}

// StatusLineState is the full displayable view model for the status
// banner. The overlay writer keeps its own StatusLineState, updates it
// only from the messages the event loop sends, and renders from it.
type StatusLineState struct {
	VoiceMode         VoiceMode
	RecordingState    RecordingState
	Pipeline          Pipeline
	SensitivityDB     float64
	Message           string
	RecordingDuration time.Duration
	AutoVoiceEnabled  bool
	MeterLevels       []float64 // ring of <= MeterHistoryMax dB samples, newest last
	MeterDB           float64
	TranscriptPreview string
	QueueDepth        int
	LastLatencyMS     int64
	SendMode          SendMode
	VoiceIntentMode   VoiceIntentMode
	HUDRightPanel     HUDRightPanel
	HUDStyle          HUDStyle
	MouseEnabled      bool
	HUDButtonFocus    int
}

// NewStatusLineState returns the default view model.
func NewStatusLineState() *StatusLineState {
	return &StatusLineState{
		VoiceMode:      VoiceModeIdle,
		RecordingState: RecordingIdle,
		Pipeline:       PipelineNative,
		SensitivityDB:  -35.0,
		SendMode:       SendModeAuto,
		HUDRightPanel:  HUDRightPanelRibbon,
		HUDStyle:       HUDStyleFull,
		HUDButtonFocus: -1,
	}
}

// PushMeterLevel appends a dB sample to the ring, evicting the oldest
// sample once MeterHistoryMax is exceeded.
func (s *StatusLineState) PushMeterLevel(db float64) {
	s.MeterLevels = append(s.MeterLevels, db)
	if len(s.MeterLevels) > MeterHistoryMax {
		s.MeterLevels = s.MeterLevels[len(s.MeterLevels)-MeterHistoryMax:]
	}
	s.MeterDB = db
}
