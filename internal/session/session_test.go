package session

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxloom/speech-gateway/internal/config"
	"github.com/voxloom/speech-gateway/internal/stt"
	"github.com/voxloom/speech-gateway/internal/tts"
	"github.com/voxloom/speech-gateway/internal/wav"
)

func testSessionConfig() *config.Config {
	return &config.Config{
		BackendModel:         "voice-a",
		SynthesisConcurrency: 1,
		ChunkMinChars:        120,
		ChunkTargetChars:     90,
		ChunkMaxCount:        3,
		LeadInSilenceMs:      200,
		SliceLengthMs:        20,
		StyleIntensity:       1.8,
		MaxRetries:           1,
	}
}

func makeWAV(durationMs int) []byte {
	frameCount := 16000 * durationMs / 1000
	frames := make([]byte, frameCount*2)
	for i := 0; i < frameCount; i++ {
		binary.LittleEndian.PutUint16(frames[i*2:], uint16(int16(1000)))
	}
	return wav.Encode(&wav.File{
		Format: wav.Format{Channels: 1, SampleWidth: 2, FrameRate: 16000},
		Frames: frames,
	})
}

func dialSession(t *testing.T, backend tts.Backend) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(Handler(testSessionConfig(), backend))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial session: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	return got
}

func TestSpeakDeliversOrderedPayloads(t *testing.T) {
	backend := &tts.MockBackend{Audio: makeWAV(50)}
	conn := dialSession(t, backend)

	for _, text := range []string{"First sentence.", "Second sentence.", "Third sentence."} {
		msg := map[string]interface{}{"type": "speak", "text": text}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("failed to send speak: %v", err)
		}
	}

	want := []string{"First sentence.", "Second sentence.", "Third sentence."}
	for i := 0; i < len(want); i++ {
		frame := readFrame(t, conn)
		if frame["type"] != "audio" {
			t.Fatalf("expected audio frame, got %v", frame["type"])
		}
		if frame["display_text"] != want[i] {
			t.Errorf("frame %d: got %q, want %q", i, frame["display_text"], want[i])
		}
		if frame["audio"] == nil {
			t.Errorf("frame %d unexpectedly silent", i)
		}
	}
}

func TestSpeakWithDisplayTextOverride(t *testing.T) {
	backend := &tts.MockBackend{Audio: makeWAV(50)}
	conn := dialSession(t, backend)

	msg := map[string]interface{}{
		"type":         "speak",
		"text":         "The forecast is sunny.",
		"display_text": "Sunny today!",
		"actions":      []string{"smile"},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send speak: %v", err)
	}

	frame := readFrame(t, conn)
	if frame["display_text"] != "Sunny today!" {
		t.Errorf("display_text override lost: %v", frame["display_text"])
	}
	actions, ok := frame["actions"].([]interface{})
	if !ok || len(actions) != 1 || actions[0] != "smile" {
		t.Errorf("actions not carried through: %v", frame["actions"])
	}
}

func TestInterruptDropsPendingSpeech(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	backend := &tts.MockBackend{
		SynthesizeFunc: func(ctx context.Context, text, dir string) ([]byte, error) {
			started <- struct{}{}
			select {
			case <-release:
				return makeWAV(50), nil
			case <-ctx.Done():
				return nil, tts.NewError(tts.CodeTimeout, "aborted", ctx.Err())
			}
		},
	}
	conn := dialSession(t, backend)

	if err := conn.WriteJSON(map[string]interface{}{"type": "speak", "text": "Long reply."}); err != nil {
		t.Fatalf("failed to send speak: %v", err)
	}
	<-started

	if err := conn.WriteJSON(map[string]interface{}{"type": "interrupt"}); err != nil {
		t.Fatalf("failed to send interrupt: %v", err)
	}
	close(release)

	frame := readFrame(t, conn)
	if frame["type"] != "interrupted" {
		t.Fatalf("expected interrupted acknowledgement, got %v", frame)
	}

	// The aborted utterance must not surface after the interrupt
	if err := conn.WriteJSON(map[string]interface{}{"type": "speak", "text": "After interrupt."}); err != nil {
		t.Fatalf("failed to send speak: %v", err)
	}
	next := readFrame(t, conn)
	if next["display_text"] != "After interrupt." {
		t.Errorf("stale payload leaked after interrupt: %v", next)
	}
}

func TestCallerAudioTriggersBargeIn(t *testing.T) {
	backend := &tts.MockBackend{Audio: makeWAV(50)}
	conn := dialSession(t, backend)

	// Without a recognizer configured, the local energy detector handles
	// barge-in. A loud 20ms frame at 16kHz is 320 samples.
	loud := make([]byte, 320*2)
	for i := 0; i < 320; i++ {
		binary.LittleEndian.PutUint16(loud[i*2:], uint16(int16(4000)))
	}
	msg := map[string]interface{}{
		"type":  "audio",
		"audio": base64.StdEncoding.EncodeToString(loud),
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}

	frame := readFrame(t, conn)
	if frame["type"] != "interrupted" {
		t.Errorf("expected barge-in interruption, got %v", frame)
	}
}

// stubRecognizer feeds scripted events into a session
type stubRecognizer struct {
	events chan stt.Event
}

func (r *stubRecognizer) Start() error { return nil }

func (r *stubRecognizer) SendAudio(data []byte) error { return nil }

func (r *stubRecognizer) Events() <-chan stt.Event { return r.events }

func (r *stubRecognizer) Stop() error { return nil }

func (r *stubRecognizer) Close() error { return nil }

func TestFinalTranscriptWhileSpeakingTriggersBargeIn(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	backend := &tts.MockBackend{
		SynthesizeFunc: func(ctx context.Context, text, dir string) ([]byte, error) {
			started <- struct{}{}
			select {
			case <-release:
				return makeWAV(50), nil
			case <-ctx.Done():
				return nil, tts.NewError(tts.CodeTimeout, "aborted", ctx.Err())
			}
		},
	}
	recognizer := &stubRecognizer{events: make(chan stt.Event, 4)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		defer conn.Close()
		s := New(conn, testSessionConfig(), backend)
		s.recognizer = recognizer
		s.Run()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial session: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	defer close(release)

	if err := conn.WriteJSON(map[string]interface{}{"type": "speak", "text": "Long reply."}); err != nil {
		t.Fatalf("failed to send speak: %v", err)
	}
	<-started

	// An interim transcript must not interrupt queued speech
	recognizer.events <- stt.Event{Kind: stt.EventTranscript, Text: "hold", IsFinal: false}
	frame := readFrame(t, conn)
	if frame["type"] != "transcript" {
		t.Fatalf("expected transcript frame, got %v", frame)
	}

	// A final transcript while speech is still queued interrupts
	recognizer.events <- stt.Event{Kind: stt.EventTranscript, Text: "hold on", IsFinal: true}
	frame = readFrame(t, conn)
	if frame["type"] != "interrupted" {
		t.Fatalf("expected interrupted acknowledgement, got %v", frame)
	}
}

func TestMalformedMessageReportsError(t *testing.T) {
	backend := &tts.MockBackend{Audio: makeWAV(50)}
	conn := dialSession(t, backend)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}
	frame := readFrame(t, conn)
	if frame["type"] != "error" {
		t.Errorf("expected error frame, got %v", frame)
	}
}
