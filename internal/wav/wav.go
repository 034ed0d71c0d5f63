// Package wav provides the minimal WAV container handling the synthesis
// pipeline needs: decoding PCM files returned by the backend, merging
// chunk audio, prepending lead-in silence, and computing per-slice volumes
// for the delivery payload.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFormatMismatch is returned when chunk audio formats differ during merge
	ErrFormatMismatch = errors.New("wav chunk format mismatch")
	// ErrNotWAV is returned for data that is not a RIFF/WAVE container
	ErrNotWAV = errors.New("not a wav file")
	// ErrEmptyAudio is returned when audio contains no frames or only silence
	ErrEmptyAudio = errors.New("audio is empty or all zero")
)

// Format describes the PCM encoding of a WAV file
type Format struct {
	Channels    int // number of interleaved channels
	SampleWidth int // bytes per sample (1 or 2)
	FrameRate   int // frames per second
}

// File is a decoded WAV file: its format plus raw interleaved PCM frames
type File struct {
	Format Format
	Frames []byte
}

// Decode parses a RIFF/WAVE byte stream into format and raw PCM frames
func Decode(data []byte) (*File, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var f File
	haveFmt := false
	haveData := false

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkLen > len(data) {
			chunkLen = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("wav fmt chunk too short: %d bytes", chunkLen)
			}
			f.Format.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.Format.FrameRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample := int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			f.Format.SampleWidth = bitsPerSample / 8
			haveFmt = true
		case "data":
			f.Frames = data[body : body+chunkLen]
			haveData = true
		}

		// Chunks are word-aligned
		pos = body + chunkLen
		if chunkLen%2 == 1 {
			pos++
		}
	}

	if !haveFmt || !haveData {
		return nil, fmt.Errorf("wav missing fmt or data chunk: %w", ErrNotWAV)
	}
	if f.Format.Channels < 1 || f.Format.SampleWidth < 1 || f.Format.FrameRate < 1 {
		return nil, fmt.Errorf("wav has invalid format %+v: %w", f.Format, ErrNotWAV)
	}
	return &f, nil
}

// Encode serializes format and frames back into a WAV byte stream
func Encode(f *File) []byte {
	frameSize := f.Format.Channels * f.Format.SampleWidth
	byteRate := f.Format.FrameRate * frameSize

	out := make([]byte, 0, 44+len(f.Frames))
	out = append(out, []byte("RIFF")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(f.Frames)))
	out = append(out, []byte("WAVE")...)

	out = append(out, []byte("fmt ")...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(f.Format.Channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(f.Format.FrameRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(frameSize))
	out = binary.LittleEndian.AppendUint16(out, uint16(f.Format.SampleWidth*8))

	out = append(out, []byte("data")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(f.Frames)))
	out = append(out, f.Frames...)
	return out
}

// Merge concatenates chunk WAV files in order into a single file. All
// chunks must share channel count, sample width, and frame rate; a
// mismatch fails the merge.
func Merge(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunk files to merge")
	}

	first, err := Decode(chunks[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode first chunk: %w", err)
	}

	merged := File{Format: first.Format}
	merged.Frames = append(merged.Frames, first.Frames...)

	for i, chunk := range chunks[1:] {
		f, err := Decode(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to decode chunk %d: %w", i+1, err)
		}
		if f.Format != first.Format {
			return nil, fmt.Errorf("chunk %d format %+v differs from %+v: %w",
				i+1, f.Format, first.Format, ErrFormatMismatch)
		}
		merged.Frames = append(merged.Frames, f.Frames...)
	}

	return Encode(&merged), nil
}

// PrependSilence inserts zero-amplitude frames of the given duration at the
// start of a WAV file, avoiding a clipped onset on playback.
func PrependSilence(data []byte, silenceMs int) ([]byte, error) {
	if silenceMs <= 0 {
		return data, nil
	}

	f, err := Decode(data)
	if err != nil {
		return nil, err
	}

	frameCount := f.Format.FrameRate * silenceMs / 1000
	if frameCount <= 0 {
		return data, nil
	}

	silence := make([]byte, frameCount*f.Format.Channels*f.Format.SampleWidth)
	out := File{Format: f.Format}
	out.Frames = append(silence, f.Frames...)
	return Encode(&out), nil
}

// DurationMs returns the playback duration of a WAV file in milliseconds
func DurationMs(data []byte) (int, error) {
	f, err := Decode(data)
	if err != nil {
		return 0, err
	}
	frameSize := f.Format.Channels * f.Format.SampleWidth
	frames := len(f.Frames) / frameSize
	return frames * 1000 / f.Format.FrameRate, nil
}

// SliceVolumes computes the RMS volume of each sliceMs-long slice of the
// audio, normalized to [0,1] against the loudest slice.
func SliceVolumes(data []byte, sliceMs int) ([]float64, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if len(f.Frames) == 0 {
		return nil, ErrEmptyAudio
	}

	frameSize := f.Format.Channels * f.Format.SampleWidth
	framesPerSlice := f.Format.FrameRate * sliceMs / 1000
	if framesPerSlice < 1 {
		framesPerSlice = 1
	}
	bytesPerSlice := framesPerSlice * frameSize

	var volumes []float64
	maxVolume := 0.0
	for start := 0; start < len(f.Frames); start += bytesPerSlice {
		end := start + bytesPerSlice
		if end > len(f.Frames) {
			end = len(f.Frames)
		}
		v := rms(f.Frames[start:end], f.Format.SampleWidth)
		volumes = append(volumes, v)
		if v > maxVolume {
			maxVolume = v
		}
	}

	if maxVolume <= 0 {
		return nil, ErrEmptyAudio
	}
	for i := range volumes {
		volumes[i] /= maxVolume
	}
	return volumes, nil
}

// rms computes the root-mean-square amplitude of raw PCM samples
func rms(frames []byte, sampleWidth int) float64 {
	var sum float64
	var n int

	switch sampleWidth {
	case 1:
		// 8-bit WAV samples are unsigned, centered on 128
		for _, b := range frames {
			s := float64(int(b) - 128)
			sum += s * s
			n++
		}
	default:
		// 16-bit signed little-endian
		for i := 0; i+1 < len(frames); i += 2 {
			s := float64(int16(binary.LittleEndian.Uint16(frames[i : i+2])))
			sum += s * s
			n++
		}
	}

	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
