package pipeline

import (
	"errors"

	"github.com/voxloom/speech-gateway/internal/tts"
	"github.com/voxloom/speech-gateway/internal/wav"
)

// Assemble merges synthesized WAV chunks into one stream, in the order
// given, and prepends the configured lead-in silence. All chunks must share
// one audio format.
func Assemble(chunks [][]byte, leadInMs int) ([]byte, error) {
	merged, err := wav.Merge(chunks)
	if err != nil {
		return nil, classifyAssemblyError(err)
	}
	if leadInMs > 0 {
		merged, err = wav.PrependSilence(merged, leadInMs)
		if err != nil {
			return nil, classifyAssemblyError(err)
		}
	}
	return merged, nil
}

func classifyAssemblyError(err error) error {
	switch {
	case errors.Is(err, wav.ErrFormatMismatch):
		return tts.NewError(tts.CodeFormatMismatch, "chunk audio formats differ", err)
	case errors.Is(err, wav.ErrEmptyAudio):
		return tts.NewError(tts.CodeEmptyAudio, "no audio to assemble", err)
	default:
		return tts.NewError(tts.CodeInvalidResponse, "backend audio is not valid wav", err)
	}
}
