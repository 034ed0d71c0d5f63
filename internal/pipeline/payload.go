package pipeline

import (
	"encoding/base64"

	"github.com/voxloom/speech-gateway/internal/tts"
	"github.com/voxloom/speech-gateway/internal/wav"
)

// Payload is one delivery-ordered message to the audio sink. A nil Audio
// field marks a silent payload: the utterance failed or had nothing to
// speak, but its display text and slot in the delivery order survive.
type Payload struct {
	Type        string    `json:"type"`
	Audio       *string   `json:"audio"`
	Volumes     []float64 `json:"volumes"`
	SliceLength int       `json:"slice_length"`
	DisplayText string    `json:"display_text"`
	Actions     []string  `json:"actions"`
	Forwarded   bool      `json:"forwarded"`
}

// Silent reports whether the payload carries no audio
func (p *Payload) Silent() bool {
	return p.Audio == nil
}

// NewAudioPayload builds a payload from assembled WAV bytes, computing the
// per-slice volume envelope used for lip sync.
func NewAudioPayload(audio []byte, displayText string, actions []string, forwarded bool, sliceMs int) (*Payload, error) {
	volumes, err := wav.SliceVolumes(audio, sliceMs)
	if err != nil {
		return nil, tts.NewError(tts.CodeInvalidResponse, "failed to compute volume envelope", err)
	}
	encoded := base64.StdEncoding.EncodeToString(audio)
	return &Payload{
		Type:        "audio",
		Audio:       &encoded,
		Volumes:     volumes,
		SliceLength: sliceMs,
		DisplayText: displayText,
		Actions:     actions,
		Forwarded:   forwarded,
	}, nil
}

// NewSilentPayload builds an audio-less payload that still carries the
// display text through the ordered delivery stream.
func NewSilentPayload(displayText string, actions []string, forwarded bool, sliceMs int) *Payload {
	return &Payload{
		Type:        "audio",
		Audio:       nil,
		Volumes:     []float64{},
		SliceLength: sliceMs,
		DisplayText: displayText,
		Actions:     actions,
		Forwarded:   forwarded,
	}
}
