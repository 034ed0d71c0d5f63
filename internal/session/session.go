// Package session manages one client WebSocket conversation: speak requests
// in, delivery-ordered audio payloads out, with barge-in interruption.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voxloom/speech-gateway/internal/audio"
	"github.com/voxloom/speech-gateway/internal/config"
	"github.com/voxloom/speech-gateway/internal/delivery"
	"github.com/voxloom/speech-gateway/internal/directive"
	"github.com/voxloom/speech-gateway/internal/observability"
	"github.com/voxloom/speech-gateway/internal/pipeline"
	"github.com/voxloom/speech-gateway/internal/stt"
	"github.com/voxloom/speech-gateway/internal/tts"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Clients are trusted local processes; origin checks belong at the
		// ingress when this is exposed.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// inboundMessage is one client control frame
type inboundMessage struct {
	Type        string   `json:"type"`
	Text        string   `json:"text,omitempty"`
	DisplayText string   `json:"display_text,omitempty"`
	Actions     []string `json:"actions,omitempty"`
	Forwarded   bool     `json:"forwarded,omitempty"`
	Audio       string   `json:"audio,omitempty"` // base64 caller audio for barge-in detection
}

// controlMessage is a non-payload frame sent to the client
type controlMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"is_final,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Session is one client conversation over a WebSocket connection
type Session struct {
	conn       *websocket.Conn
	sink       *delivery.WebSocketSink
	manager    *pipeline.Manager
	recognizer stt.Recognizer
	detector   *audio.SpeechDetector // local fallback when no recognizer is configured
	cfg        *config.Config
	logger     zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session around an upgraded connection. Each session gets
// its own directive compiler so interjection recency tracks one
// conversation, while the synthesis backend is shared across sessions.
func New(conn *websocket.Conn, cfg *config.Config, backend tts.Backend) *Session {
	correlationID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(correlationID)

	sink := delivery.NewWebSocketSink(conn)
	compiler := directive.NewCompiler(cfg.BaseInstruct, cfg.StyleIntensity, cfg.InterjectionSeed, logger)

	s := &Session{
		conn:    conn,
		sink:    sink,
		manager: pipeline.NewManager(context.Background(), cfg, backend, compiler, sink),
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
	if cfg.DeepgramAPIKey != "" {
		s.recognizer = stt.NewDeepgramRecognizer(cfg)
	} else {
		s.detector = audio.NewSpeechDetector(audio.DefaultDetectorConfig())
	}
	return s
}

// Handler returns the WebSocket entry point for client conversations
func Handler(cfg *config.Config, backend tts.Backend) http.HandlerFunc {
	logger := observability.WithComponent("session")
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to upgrade connection")
			return
		}
		defer conn.Close()

		s := New(conn, cfg, backend)
		s.Run()
	}
}

// Run starts the session loops and blocks until the connection ends
func (s *Session) Run() {
	defer s.close()

	if s.recognizer != nil {
		if err := s.recognizer.Start(); err != nil {
			s.logger.Warn().Err(err).Msg("Recognizer unavailable, barge-in disabled")
			s.recognizer = nil
		} else {
			go s.watchRecognizer()
		}
	}

	s.logger.Info().Msg("Session started")
	s.readLoop()
}

func (s *Session) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse client message")
			s.sendControl(controlMessage{Type: "error", Detail: "malformed message"})
			continue
		}

		switch msg.Type {
		case "speak":
			s.manager.Speak(msg.Text, pipeline.SpeakOptions{
				DisplayText: msg.DisplayText,
				Actions:     msg.Actions,
				Forwarded:   msg.Forwarded,
			})

		case "interrupt":
			s.interrupt("client request")

		case "audio":
			s.handleCallerAudio(msg.Audio)

		default:
			s.logger.Debug().Str("type", msg.Type).Msg("Unknown client message type")
		}
	}
}

// handleCallerAudio forwards caller audio to the recognizer, or runs the
// local energy detector when no recognizer is configured.
func (s *Session) handleCallerAudio(encoded string) {
	if encoded == "" {
		return
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode caller audio")
		return
	}

	if s.recognizer != nil {
		if err := s.recognizer.SendAudio(data); err != nil {
			s.logger.Error().Err(err).Msg("Failed to forward caller audio to recognizer")
		}
		return
	}
	if s.detector != nil {
		if started, _ := s.detector.Feed(data); started {
			s.interrupt("caller speech")
		}
	}
}

// watchRecognizer turns recognizer events into barge-in resets and
// transcript forwards.
func (s *Session) watchRecognizer() {
	for {
		select {
		case ev, ok := <-s.recognizer.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case stt.EventSpeechStarted:
				s.interrupt("caller speech")
			case stt.EventTranscript:
				// A final transcript landing while speech is still queued
				// means the caller talked over us.
				if ev.IsFinal && s.manager.Busy() {
					s.interrupt("caller transcript")
				}
				s.sendControl(controlMessage{Type: "transcript", Text: ev.Text, IsFinal: ev.IsFinal})
			}
		case <-s.done:
			return
		}
	}
}

// interrupt aborts all in-flight and buffered speech for this session
func (s *Session) interrupt(reason string) {
	s.logger.Info().Str("reason", reason).Msg("Interrupting speech")
	s.manager.Reset()
	observability.RecordBargeIn()
	s.sendControl(controlMessage{Type: "interrupted"})
}

func (s *Session) sendControl(msg controlMessage) {
	if err := s.sink.SendMessage(msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send control message")
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.manager.Close()
		if s.recognizer != nil {
			if err := s.recognizer.Close(); err != nil {
				s.logger.Error().Err(err).Msg("Failed to close recognizer")
			}
		}
		s.sink.Close()
		s.logger.Info().Msg("Session ended")
	})
}
