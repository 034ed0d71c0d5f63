package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/voxloom/speech-gateway/internal/config"
	"github.com/voxloom/speech-gateway/internal/observability"
	"github.com/voxloom/speech-gateway/internal/resilience"
)

// callbackBridge implements the SDK's LiveMessageCallback by embedding the
// default handler and overriding only message and error delivery.
type callbackBridge struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onError   func(*msginterfaces.ErrorResponse) error
}

func (b *callbackBridge) Message(msg *msginterfaces.MessageResponse) error {
	b.onMessage(msg)
	return nil
}

func (b *callbackBridge) Error(resp *msginterfaces.ErrorResponse) error {
	if b.onError != nil {
		return b.onError(resp)
	}
	return b.DefaultCallbackHandler.Error(resp)
}

// DeepgramRecognizer implements Recognizer over Deepgram's live streaming
// API. Speech-start events drive barge-in; transcripts are forwarded for
// the conversation layer.
type DeepgramRecognizer struct {
	cfg     *config.Config
	events  chan Event
	breaker *resilience.CircuitBreaker
	backoff resilience.BackoffConfig
	logger  zerolog.Logger

	mu     sync.RWMutex
	client *listenClient.WSCallback
	active bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDeepgramRecognizer creates a recognizer from the service configuration
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeepgramRecognizer{
		cfg:    cfg,
		events: make(chan Event, 100),
		breaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		backoff: resilience.BackoffConfig{
			Initial:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			Max:        30 * time.Second,
			Multiplier: 2.0,
		},
		logger: observability.WithComponent("recognizer"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the live transcription session
func (d *DeepgramRecognizer) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return fmt.Errorf("recognizer is already active")
	}
	if d.cfg.DeepgramAPIKey == "" {
		return fmt.Errorf("recognizer requires DEEPGRAM_API_KEY")
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.DeepgramModel,
		Language:       d.cfg.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     16000,
	}

	callback := &callbackBridge{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage:              d.handleMessage,
		onError: func(resp *msginterfaces.ErrorResponse) error {
			d.logger.Error().Interface("response", resp).Msg("Recognizer stream error")
			d.breaker.Record(false)
			observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))
			observability.IncrementCircuitBreakerFailures(d.breaker.Name())

			select {
			case <-d.ctx.Done():
				return nil
			default:
			}
			d.mu.Lock()
			d.active = false
			d.mu.Unlock()
			go d.reconnect()
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(d.ctx, d.cfg.DeepgramAPIKey, nil, tOptions, callback)
	if err != nil {
		return fmt.Errorf("failed to create recognizer client: %w", err)
	}

	d.client = client
	d.active = true
	d.breaker.Record(true)
	observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))

	d.logger.Info().
		Str("model", d.cfg.DeepgramModel).
		Str("language", d.cfg.DeepgramLanguage).
		Msg("Recognizer session started")
	return nil
}

func (d *DeepgramRecognizer) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "SpeechStarted":
		d.emit(Event{Kind: EventSpeechStarted})

	case "UtteranceEnd":
		d.emit(Event{Kind: EventUtteranceEnd})

	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}
		d.emit(Event{
			Kind:       EventTranscript,
			Text:       alt.Transcript,
			IsFinal:    msg.IsFinal,
			Confidence: alt.Confidence,
		})

	case "Metadata":
		// No event; connection bookkeeping only

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Unhandled recognizer message type")
	}
}

func (d *DeepgramRecognizer) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn().Msg("Recognizer event channel full, dropping event")
	}
}

// SendAudio forwards one chunk of caller audio to the live session
func (d *DeepgramRecognizer) SendAudio(data []byte) error {
	err := d.breaker.Call(func() error {
		d.mu.RLock()
		active := d.active
		client := d.client
		d.mu.RUnlock()

		if !active || client == nil {
			return fmt.Errorf("recognizer is not active")
		}
		if _, err := client.Write(data); err != nil {
			go d.reconnect()
			return fmt.Errorf("failed to send audio to recognizer: %w", err)
		}
		return nil
	})

	observability.UpdateCircuitBreakerState(d.breaker.Name(), int(d.breaker.State()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures(d.breaker.Name())
	}
	return err
}

// reconnect retries Start with exponential backoff until it succeeds or
// the client is closed.
func (d *DeepgramRecognizer) reconnect() {
	for attempt := 0; ; attempt++ {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		d.mu.RLock()
		active := d.active
		d.mu.RUnlock()
		if active {
			return
		}

		if err := d.Start(); err == nil {
			d.logger.Info().Msg("Recognizer reconnected")
			return
		}

		if err := d.backoff.Wait(d.ctx, attempt); err != nil {
			return
		}
	}
}

// Events returns the recognizer event stream
func (d *DeepgramRecognizer) Events() <-chan Event {
	return d.events
}

// Stop closes the streaming session
func (d *DeepgramRecognizer) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}
	d.client.Finish()
	d.active = false
	d.logger.Info().Msg("Recognizer session stopped")
	return nil
}

// Close releases the client and ends any reconnection attempts
func (d *DeepgramRecognizer) Close() error {
	d.cancel()
	if err := d.Stop(); err != nil {
		return err
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(d.events)
	}()
	return nil
}
