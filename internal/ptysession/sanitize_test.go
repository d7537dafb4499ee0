package ptysession

import "testing"

func TestSanitizeForOverlayPassesPlainText(t *testing.T) {
	in := []byte("hello\tworld\r\n")
	got := SanitizeForOverlay(in)
	if string(got) != "hello\tworld\n" {
		t.Fatalf("expected plain text kept and the CR replayed away, got %q", got)
	}
}

func TestSanitizeForOverlayStripsCSI(t *testing.T) {
	in := []byte("before\033[2J\033[1;1Hafter")
	got := SanitizeForOverlay(in)
	if string(got) != "beforeafter" {
		t.Fatalf("expected CSI sequences stripped, got %q", got)
	}
}

func TestSanitizeForOverlayStripsOSC(t *testing.T) {
	in := []byte("before\033]0;window title\007after")
	got := SanitizeForOverlay(in)
	if string(got) != "beforeafter" {
		t.Fatalf("expected OSC sequence stripped, got %q", got)
	}
}

func TestSanitizeForOverlayStripsOSCTerminatedByST(t *testing.T) {
	in := []byte("before\033]10;?\033\\after")
	got := SanitizeForOverlay(in)
	if string(got) != "beforeafter" {
		t.Fatalf("expected ST-terminated OSC sequence stripped, got %q", got)
	}
}
