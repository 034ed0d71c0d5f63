package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// makeWAV builds a 16-bit mono WAV with the given frame rate and sample values.
func makeWAV(frameRate int, samples []int16) []byte {
	frames := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(frames[i*2:], uint16(s))
	}
	return Encode(&File{
		Format: Format{Channels: 1, SampleWidth: 2, FrameRate: frameRate},
		Frames: frames,
	})
}

func constantSamples(n int, value int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = value
	}
	return s
}

func TestDecode_RoundTrip(t *testing.T) {
	original := makeWAV(16000, []int16{0, 100, -100, 32000, -32000})

	f, err := Decode(original)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Format.Channels != 1 || f.Format.SampleWidth != 2 || f.Format.FrameRate != 16000 {
		t.Errorf("Unexpected format: %+v", f.Format)
	}
	if len(f.Frames) != 10 {
		t.Errorf("Expected 10 frame bytes, got %d", len(f.Frames))
	}

	if !bytes.Equal(Encode(f), original) {
		t.Error("Encode(Decode(x)) != x")
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not audio")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Expected ErrNotWAV, got %v", err)
	}
}

func TestMerge_ConcatenatesInOrder(t *testing.T) {
	a := makeWAV(16000, []int16{1, 2, 3})
	b := makeWAV(16000, []int16{4, 5})
	c := makeWAV(16000, []int16{6})

	merged, err := Merge([][]byte{a, b, c})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	f, err := Decode(merged)
	if err != nil {
		t.Fatalf("Decode of merged audio failed: %v", err)
	}

	want := makeWAV(16000, []int16{1, 2, 3, 4, 5, 6})
	if !bytes.Equal(merged, want) {
		t.Error("Merged audio does not equal single-file concatenation")
	}
	if len(f.Frames) != 12 {
		t.Errorf("Expected 12 frame bytes, got %d", len(f.Frames))
	}
}

func TestMerge_FormatMismatch(t *testing.T) {
	a := makeWAV(16000, []int16{1, 2, 3})
	b := makeWAV(22050, []int16{4, 5})

	if _, err := Merge([][]byte{a, b}); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Expected ErrFormatMismatch, got %v", err)
	}
}

func TestPrependSilence_AddsZeroFrames(t *testing.T) {
	audio := makeWAV(1000, constantSamples(100, 1000)) // 100ms at 1kHz

	out, err := PrependSilence(audio, 200)
	if err != nil {
		t.Fatalf("PrependSilence failed: %v", err)
	}

	f, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	// 200ms at 1kHz mono 16-bit = 200 frames = 400 bytes of leading zeros
	if len(f.Frames) != 400+200 {
		t.Fatalf("Expected 600 frame bytes, got %d", len(f.Frames))
	}
	for i := 0; i < 400; i++ {
		if f.Frames[i] != 0 {
			t.Fatalf("Expected silence at byte %d, got %d", i, f.Frames[i])
		}
	}

	ms, err := DurationMs(out)
	if err != nil {
		t.Fatalf("DurationMs failed: %v", err)
	}
	if ms != 300 {
		t.Errorf("Expected 300ms duration, got %d", ms)
	}
}

func TestPrependSilence_ZeroDurationUnchanged(t *testing.T) {
	audio := makeWAV(16000, []int16{1, 2, 3})
	out, err := PrependSilence(audio, 0)
	if err != nil {
		t.Fatalf("PrependSilence failed: %v", err)
	}
	if !bytes.Equal(out, audio) {
		t.Error("Expected unchanged audio for zero silence")
	}
}

func TestSliceVolumes_Normalized(t *testing.T) {
	// 1kHz, 20ms slices = 20 frames per slice. Quiet slice then loud slice.
	samples := append(constantSamples(20, 100), constantSamples(20, 10000)...)
	audio := makeWAV(1000, samples)

	volumes, err := SliceVolumes(audio, 20)
	if err != nil {
		t.Fatalf("SliceVolumes failed: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("Expected 2 slices, got %d", len(volumes))
	}
	if volumes[1] != 1.0 {
		t.Errorf("Expected loudest slice normalized to 1.0, got %f", volumes[1])
	}
	if volumes[0] <= 0 || volumes[0] >= 0.5 {
		t.Errorf("Expected quiet slice well below 0.5, got %f", volumes[0])
	}
}

func TestSliceVolumes_AllZeroFails(t *testing.T) {
	audio := makeWAV(1000, constantSamples(40, 0))

	if _, err := SliceVolumes(audio, 20); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("Expected ErrEmptyAudio, got %v", err)
	}
}
