package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxloom/speech-gateway/internal/config"
	"github.com/voxloom/speech-gateway/internal/observability"
	"github.com/voxloom/speech-gateway/internal/resilience"
)

// ClientConfig holds the synthesis backend connection settings
type ClientConfig struct {
	URL           string // full endpoint URL, e.g. http://host:8000/v1/audio/speech
	APIKey        string
	Model         string
	FallbackModel string
	Voice         string
	Language      string
	Timeout       time.Duration
	MaxRetries    int // attempts per model
	Backoff       resilience.BackoffConfig
}

// ClientConfigFromEnv derives backend settings from the service configuration
func ClientConfigFromEnv(cfg *config.Config) ClientConfig {
	return ClientConfig{
		URL:           strings.TrimRight(cfg.BackendURL, "/") + cfg.BackendEndpoint,
		APIKey:        cfg.BackendAPIKey,
		Model:         cfg.BackendModel,
		FallbackModel: cfg.FallbackModel,
		Voice:         cfg.Voice,
		Language:      cfg.Language,
		Timeout:       time.Duration(cfg.BackendTimeout) * time.Second,
		MaxRetries:    cfg.MaxRetries,
		Backoff: resilience.BackoffConfig{
			Initial:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			Max:        5 * time.Second,
			Multiplier: 2.0,
		},
	}
}

// Client is an HTTP synthesis backend adapter. It retries transient
// failures on the primary model, falls through to a single attempt on the
// fallback model when the primary is exhausted, and routes every round trip
// through the shared limiter and circuit breaker.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter Limiter
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a synthesis backend client. limiter may be nil when
// concurrency is bounded elsewhere.
func NewClient(cfg ClientConfig, limiter Limiter, breaker *resilience.CircuitBreaker) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = resilience.DefaultBackoffConfig()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		breaker: breaker,
		logger:  observability.WithComponent("tts-client"),
	}
}

type synthesisRequest struct {
	Model        string `json:"model"`
	Language     string `json:"language,omitempty"`
	Text         string `json:"text"`
	Voice        string `json:"voice,omitempty"`
	Instruct     string `json:"instruct,omitempty"`
	OutputFormat string `json:"output_format"`
}

// Synthesize sends text and its directive to the backend and returns WAV
// bytes. All attempts against the primary model are exhausted before the
// fallback model gets its single attempt.
func (c *Client) Synthesize(ctx context.Context, text, directive string) ([]byte, error) {
	if c.cfg.Model == "" {
		return nil, NewError(CodeConfig, "no backend model configured", nil)
	}

	type modelPlan struct {
		model    string
		attempts int
	}
	plans := []modelPlan{{c.cfg.Model, c.cfg.MaxRetries}}
	if c.cfg.FallbackModel != "" && c.cfg.FallbackModel != c.cfg.Model {
		plans = append(plans, modelPlan{c.cfg.FallbackModel, 1})
	}

	var lastErr error
	for _, plan := range plans {
		for attempt := 0; attempt < plan.attempts; attempt++ {
			if attempt > 0 {
				if err := c.cfg.Backoff.Wait(ctx, attempt-1); err != nil {
					return nil, NewError(CodeTimeout, "cancelled during retry backoff", err)
				}
			}

			audio, err := c.attempt(ctx, plan.model, text, directive)
			if err == nil {
				return audio, nil
			}
			lastErr = err

			c.logger.Warn().
				Err(err).
				Str("model", plan.model).
				Int("attempt", attempt+1).
				Msg("Synthesis attempt failed")

			if !Retryable(err) {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// SynthesizeChunksWithAnchor synthesizes every chunk concurrently under the
// shared anchor directive. Concurrency is still bounded by the limiter, one
// acquisition per round trip. A single chunk failure fails the batch.
func (c *Client) SynthesizeChunksWithAnchor(ctx context.Context, chunks []string, anchorDirective string) ([][]byte, error) {
	results := make([][]byte, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			results[i], errs[i] = c.Synthesize(ctx, chunk, anchorDirective)
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// attempt performs one gated, breaker-protected round trip
func (c *Client) attempt(ctx context.Context, model, text, directive string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, NewError(CodeTimeout, "cancelled waiting for synthesis slot", err)
		}
		defer c.limiter.Release()
	}

	start := time.Now()
	var audio []byte
	err := c.callBreaker(func() error {
		var rtErr error
		audio, rtErr = c.roundTrip(ctx, model, text, directive)
		return rtErr
	})
	observability.RecordSynthesisRequest(model, err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (c *Client) callBreaker(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	err := c.breaker.Call(fn)
	observability.UpdateCircuitBreakerState(c.breaker.Name(), int(c.breaker.State()))
	if errors.Is(err, resilience.ErrCircuitOpen) {
		observability.IncrementCircuitBreakerFailures(c.breaker.Name())
		return NewError(CodeNetwork, "synthesis backend circuit open", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, model, text, directive string) ([]byte, error) {
	body, err := json.Marshal(synthesisRequest{
		Model:        model,
		Language:     c.cfg.Language,
		Text:         text,
		Voice:        c.cfg.Voice,
		Instruct:     directive,
		OutputFormat: "wav",
	})
	if err != nil {
		return nil, NewError(CodeInvalidResponse, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(CodeConfig, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		detail := readErrorDetail(resp.Body)
		return nil, NewError(CodeServerError, fmt.Sprintf("backend returned %d: %s", resp.StatusCode, detail), nil)
	}
	if resp.StatusCode >= 400 {
		detail := readErrorDetail(resp.Body)
		return nil, NewError(CodeClientError, fmt.Sprintf("backend rejected request with %d: %s", resp.StatusCode, detail), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(CodeNetwork, "failed to read response body", err)
	}
	if len(audio) == 0 {
		return nil, NewError(CodeEmptyAudio, "backend returned no audio", nil)
	}
	return audio, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeTimeout, "synthesis request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(CodeTimeout, "synthesis request timed out", err)
	}
	return NewError(CodeNetwork, "synthesis request failed", err)
}

// readErrorDetail reads a bounded prefix of an error response body
func readErrorDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(b) == 0 {
		return "no detail"
	}
	return strings.TrimSpace(string(b))
}
