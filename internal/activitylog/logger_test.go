package activitylog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCaptureStartedAndStopped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess-123")
	defer l.Close()

	l.CaptureStarted("manual")
	l.CaptureStopped("vad_silence", 1200)

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var started struct {
		Actor     string `json:"actor"`
		SessionID string `json:"session_id"`
		Event     string `json:"event"`
		Trigger   string `json:"trigger"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &started); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if started.Actor != "voxterm" || started.SessionID != "sess-123" {
		t.Errorf("actor/session = %q/%q, want voxterm/sess-123", started.Actor, started.SessionID)
	}
	if started.Event != "capture_started" || started.Trigger != "manual" {
		t.Errorf("unexpected entry: %+v", started)
	}

	var stopped struct {
		Event      string `json:"event"`
		Reason     string `json:"reason"`
		DurationMS int64  `json:"duration_ms"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &stopped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stopped.Event != "capture_stopped" || stopped.Reason != "vad_silence" || stopped.DurationMS != 1200 {
		t.Errorf("unexpected entry: %+v", stopped)
	}
}

func TestTranscriptDelivered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.TranscriptDelivered("auto", 42, "native")

	lines := readLines(t, path)
	var e struct {
		Event  string `json:"event"`
		Mode   string `json:"mode"`
		Source string `json:"source"`
		Len    int    `json:"text_len"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Event != "transcript_delivered" || e.Mode != "auto" || e.Source != "native" || e.Len != 42 {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestTranscriptDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.TranscriptDropped("queue_overflow")

	lines := readLines(t, path)
	var e struct {
		Event  string `json:"event"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Event != "transcript_dropped" || e.Reason != "queue_overflow" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestPromptDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.PromptDetected("learned")

	lines := readLines(t, path)
	var e struct {
		Event  string `json:"event"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Event != "prompt_detected" || e.Source != "learned" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestBackendError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.BackendError("ptysession", "child exited unexpectedly")

	lines := readLines(t, path)
	var e struct {
		Event     string `json:"event"`
		Component string `json:"component"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Event != "backend_error" || e.Component != "ptysession" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(false, path, "voxterm", "sess")
	defer l.Close()

	l.CaptureStarted("manual")
	l.TranscriptDelivered("auto", 1, "native")
	l.BackendError("ptysession", "x")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no file to be created when disabled")
	}
}

func TestNopLoggerIsNoop(t *testing.T) {
	l := Nop()
	l.CaptureStarted("manual")
	l.TranscriptDelivered("auto", 1, "native")
	l.BackendError("ptysession", "x")
	l.Close()
}

func TestMultipleEntriesAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.CaptureStarted("auto")
	l.CaptureStopped("max_duration", 30000)
	l.TranscriptDelivered("insert", 5, "python")

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}

func TestTimestampPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	l := New(true, path, "voxterm", "sess")
	defer l.Close()

	l.CaptureStarted("manual")

	lines := readLines(t, path)
	var e struct {
		Timestamp string `json:"ts"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Timestamp == "" {
		t.Error("expected ts field to be present")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
