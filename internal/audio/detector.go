// Package audio provides local energy-based voice activity detection, used
// for barge-in when no streaming recognizer is configured.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// DetectorConfig holds speech detection tuning
type DetectorConfig struct {
	EnergyThreshold float64 // RMS threshold for a frame to count as speech
	SilenceFrames   int     // consecutive quiet frames that end speech
	FrameSize       int     // samples per frame
}

// DefaultDetectorConfig returns settings for 16 kHz mono caller audio
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,  // 200ms at 20ms frames
		FrameSize:       320, // 20ms at 16kHz
	}
}

// SpeechDetector tracks voice activity across a stream of PCM chunks.
// Chunk boundaries need not align with frames; partial frames carry over to
// the next Feed call.
type SpeechDetector struct {
	cfg DetectorConfig

	mu           sync.Mutex
	pending      []byte
	silenceCount int
	speaking     bool
}

// NewSpeechDetector creates a detector; zero-value config fields fall back
// to defaults.
func NewSpeechDetector(cfg DetectorConfig) *SpeechDetector {
	def := DefaultDetectorConfig()
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = def.SilenceFrames
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	return &SpeechDetector{cfg: cfg}
}

// Feed consumes 16-bit little-endian mono PCM and reports whether speech
// started or ended within it.
func (d *SpeechDetector) Feed(pcm []byte) (started, ended bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, pcm...)
	frameBytes := d.cfg.FrameSize * 2

	for len(d.pending) >= frameBytes {
		frame := d.pending[:frameBytes]
		d.pending = d.pending[frameBytes:]

		samples := make([]int16, d.cfg.FrameSize)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
		}

		s, e := d.processFrame(samples)
		started = started || s
		ended = ended || e
	}
	return started, ended
}

func (d *SpeechDetector) processFrame(samples []int16) (started, ended bool) {
	if rmsInt16(samples) > d.cfg.EnergyThreshold {
		d.silenceCount = 0
		if !d.speaking {
			d.speaking = true
			started = true
		}
		return started, false
	}

	d.silenceCount++
	if d.speaking && d.silenceCount >= d.cfg.SilenceFrames {
		d.speaking = false
		d.silenceCount = 0
		ended = true
	}
	return false, ended
}

// Speaking reports whether speech is currently active
func (d *SpeechDetector) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

// Reset clears detection state and any buffered partial frame
func (d *SpeechDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.silenceCount = 0
	d.speaking = false
}

func rmsInt16(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
