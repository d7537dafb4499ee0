package audio

import (
	"math"
	"testing"
)

func TestLiveMeterSilenceFloor(t *testing.T) {
	m := NewLiveMeter()
	if m.Get() != floorDB {
		t.Fatalf("expected initial level %v, got %v", floorDB, m.Get())
	}
	m.UpdateFromSamples(make([]float32, 160))
	if m.Get() != floorDB {
		t.Fatalf("expected silence to clamp to floor, got %v", m.Get())
	}
}

func TestLiveMeterTracksLoudSignal(t *testing.T) {
	m := NewLiveMeter()
	samples := make([]float32, 160)
	for i := range samples {
		samples[i] = 0.5
	}
	m.UpdateFromSamples(samples)
	if m.Get() <= floorDB {
		t.Fatalf("expected loud signal above floor, got %v", m.Get())
	}
}

func TestDownmixStereoToMono(t *testing.T) {
	stereo := []float32{1, 0, 1, 0} // two frames, L=1 R=0
	mono := Downmix(stereo, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(mono))
	}
	for _, s := range mono {
		if math.Abs(float64(s-0.5)) > 1e-6 {
			t.Errorf("expected averaged sample 0.5, got %v", s)
		}
	}
}

func TestDownmixMonoIsNoop(t *testing.T) {
	mono := []float32{1, 2, 3}
	out := Downmix(mono, 1)
	if len(out) != 3 || out[0] != 1 {
		t.Fatalf("expected mono input unchanged, got %v", out)
	}
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3}
	out := Resample(in, 16000, 16000)
	if len(out) != 3 {
		t.Fatalf("expected identity passthrough, got %v", out)
	}
}

func TestResampleDownsampleShrinksLength(t *testing.T) {
	in := make([]float32, 320) // 20ms @ 16kHz
	out := Resample(in, 16000, 8000)
	if len(out) != 160 {
		t.Fatalf("expected 160 samples at 8kHz, got %d", len(out))
	}
}

func TestFrameDispatcherEmitsFixedSizeFrames(t *testing.T) {
	d := NewFrameDispatcher(4, 1, 10)
	d.Push([]float32{1, 2, 3, 4, 5, 6})
	select {
	case f := <-d.Frames():
		if len(f.Samples) != 4 {
			t.Fatalf("expected a 4-sample frame, got %d", len(f.Samples))
		}
	default:
		t.Fatal("expected a frame to be available")
	}
}

func TestFrameDispatcherDropsWhenChannelFull(t *testing.T) {
	d := NewFrameDispatcher(1, 1, 1)
	d.Push([]float32{1})
	d.Push([]float32{2})
	d.Push([]float32{3})
	if d.Dropped() == 0 {
		t.Fatal("expected drops once the bounded channel fills")
	}
}
