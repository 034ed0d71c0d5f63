package stt

// EventKind distinguishes recognizer events
type EventKind int

const (
	// EventSpeechStarted fires when voice activity begins; this is the
	// barge-in trigger while agent audio is playing.
	EventSpeechStarted EventKind = iota
	// EventTranscript carries interim or final transcription text
	EventTranscript
	// EventUtteranceEnd fires after trailing silence closes an utterance
	EventUtteranceEnd
)

// Event is one recognizer observation
type Event struct {
	Kind       EventKind
	Text       string
	IsFinal    bool
	Confidence float64
}

// Recognizer is a streaming speech recognizer used for barge-in detection
// and user transcription.
type Recognizer interface {
	// Start opens the streaming session
	Start() error

	// SendAudio forwards one chunk of caller audio
	SendAudio(data []byte) error

	// Events returns the recognizer event stream
	Events() <-chan Event

	// Stop closes the streaming session but keeps the client reusable
	Stop() error

	// Close releases the client
	Close() error
}
