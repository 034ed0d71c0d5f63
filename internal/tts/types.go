package tts

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies a synthesis failure
type Code string

const (
	CodeConfig          Code = "CONFIG"           // no usable backend model
	CodeTimeout         Code = "TIMEOUT"          // request deadline exceeded
	CodeNetwork         Code = "NETWORK"          // transport failure
	CodeServerError     Code = "HTTP_5XX"         // backend server error
	CodeClientError     Code = "HTTP_4XX"         // request/config bug, never retried
	CodeEmptyAudio      Code = "EMPTY_AUDIO"      // backend returned no audio bytes
	CodeInvalidResponse Code = "INVALID_RESPONSE" // malformed backend response
	CodeWriteError      Code = "WRITE_ERROR"      // local I/O failure on synthesized audio
	CodeFormatMismatch  Code = "FORMAT_MISMATCH"  // chunk audio formats differ during merge
)

// SynthesisError is a classified synthesis backend failure
type SynthesisError struct {
	Code   Code
	Detail string
	Err    error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synthesis %s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("synthesis %s: %s", e.Code, e.Detail)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// NewError creates a classified synthesis error
func NewError(code Code, detail string, err error) *SynthesisError {
	return &SynthesisError{Code: code, Detail: detail, Err: err}
}

// CodeOf extracts the classification of an error, or empty for
// unclassified errors.
func CodeOf(err error) Code {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Retryable reports whether another attempt against the same model could
// succeed. Client errors and malformed responses indicate a payload or
// configuration bug and are never retried.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeNetwork, CodeServerError, CodeEmptyAudio:
		return true
	}
	return false
}

// Backend is a speech-synthesis service: text plus a natural-language
// directive in, raw audio bytes out.
type Backend interface {
	Synthesize(ctx context.Context, text, directive string) ([]byte, error)
}

// AnchoredBackend is a Backend that can synthesize the sub-chunks of one
// utterance as a batch under a shared anchor directive. Callers select the
// batched path by interface assertion at wiring time, never by runtime
// probing.
type AnchoredBackend interface {
	Backend

	// SynthesizeChunksWithAnchor synthesizes every chunk under the anchor
	// directive and returns their audio in chunk order. Any chunk failure
	// fails the whole batch.
	SynthesizeChunksWithAnchor(ctx context.Context, chunks []string, anchorDirective string) ([][]byte, error)
}

// Limiter bounds concurrent backend round trips process-wide. Each network
// call acquires the limiter for its duration.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}
