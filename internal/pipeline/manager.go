package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voxloom/speech-gateway/internal/config"
	"github.com/voxloom/speech-gateway/internal/directive"
	"github.com/voxloom/speech-gateway/internal/observability"
	"github.com/voxloom/speech-gateway/internal/tts"
)

// Sink receives delivery-ordered payloads
type Sink interface {
	Send(ctx context.Context, payload *Payload) error
}

// SpeakOptions carries per-utterance metadata through the pipeline
type SpeakOptions struct {
	DisplayText string   // shown to the client; defaults to the spoken text
	Actions     []string // client-side actions attached to the payload
	Forwarded   bool     // payload originated from another service
}

// Manager runs the ordered synthesis pipeline. Utterances are admitted with
// strictly increasing sequence numbers, synthesized concurrently, and
// delivered to the sink strictly in admission order. Every admitted
// utterance produces exactly one payload; failures degrade to a silent
// payload rather than losing the slot.
type Manager struct {
	cfg      *config.Config
	backend  tts.Backend
	compiler *directive.Compiler
	sink     Sink
	logger   zerolog.Logger

	mu         sync.Mutex
	seq        uint64
	nextToSend uint64
	epoch      uint64
	pending    map[uint64]*Payload
	epochCtx   context.Context
	cancel     context.CancelFunc

	// sendMu serializes the drain loop so payloads reach the sink in order
	sendMu sync.Mutex
}

// NewManager creates a pipeline manager. parent bounds the lifetime of all
// synthesis work; cancelling it aborts in-flight backend calls.
func NewManager(parent context.Context, cfg *config.Config, backend tts.Backend, compiler *directive.Compiler, sink Sink) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		cfg:      cfg,
		backend:  backend,
		compiler: compiler,
		sink:     sink,
		logger:   observability.WithComponent("pipeline"),
		pending:  make(map[uint64]*Payload),
		epochCtx: ctx,
		cancel:   cancel,
	}
}

// Speak admits one utterance and returns immediately. Synthesis runs in the
// background; the result is delivered to the sink in admission order.
func (m *Manager) Speak(text string, opts SpeakOptions) {
	m.mu.Lock()
	seq := m.seq
	m.seq++
	epoch := m.epoch
	ctx := m.epochCtx
	m.mu.Unlock()

	observability.RecordUtteranceAdmitted()
	go m.run(ctx, epoch, seq, text, opts)
}

// Reset aborts all in-flight synthesis and clears delivery state. Work
// admitted before the reset can still complete, but its payloads are
// dropped on arrival. Interjection recency state is cleared with it.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.cancel()
	m.epoch++
	m.seq = 0
	m.nextToSend = 0
	m.pending = make(map[uint64]*Payload)
	m.epochCtx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.compiler.Reset()
	observability.SetReorderBufferDepth(0)
	m.logger.Info().Msg("Pipeline reset, in-flight synthesis aborted")
}

// Busy reports whether any admitted utterance has not yet been delivered
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextToSend < m.seq
}

// Close aborts in-flight work without starting a new epoch
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, epoch, seq uint64, text string, opts SpeakOptions) {
	display := opts.DisplayText
	if display == "" {
		display = text
	}

	var payload *Payload
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Interface("panic", r).
					Uint64("seq", seq).
					Msg("Synthesis task panicked, degrading to silent payload")
				payload = NewSilentPayload(display, opts.Actions, opts.Forwarded, m.cfg.SliceLengthMs)
			}
		}()
		payload = m.synthesize(ctx, text, display, opts)
	}()

	m.complete(epoch, seq, payload)
}

// synthesize produces exactly one payload for the utterance, degrading to a
// silent payload on any failure.
func (m *Manager) synthesize(ctx context.Context, text, display string, opts SpeakOptions) *Payload {
	silent := func() *Payload {
		return NewSilentPayload(display, opts.Actions, opts.Forwarded, m.cfg.SliceLengthMs)
	}

	if strings.TrimSpace(text) == "" || !directive.IsSpeakable(text) {
		return silent()
	}

	chunks := Plan(text, m.cfg.ChunkMinChars, m.cfg.ChunkTargetChars, m.cfg.ChunkMaxCount)
	if len(chunks) == 0 {
		return silent()
	}
	observability.RecordChunkPlanSize(len(chunks))

	audio, err := m.synthesizeChunks(ctx, text, chunks)
	if err != nil && len(chunks) > 1 {
		// Chunked synthesis failed somewhere; one whole-text attempt before
		// giving up the audio for this slot.
		audio, err = m.synthesizeWhole(ctx, text)
	}
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("code", string(tts.CodeOf(err))).
			Msg("Synthesis failed, delivering silent payload")
		return silent()
	}

	payload, err := NewAudioPayload(audio, display, opts.Actions, opts.Forwarded, m.cfg.SliceLengthMs)
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("code", string(tts.CodeOf(err))).
			Msg("Payload assembly failed, delivering silent payload")
		return silent()
	}
	return payload
}

// synthesizeWhole is the single-call fallback after a chunked attempt fails.
// The text is compiled like any single-chunk utterance, interjections
// included.
func (m *Manager) synthesizeWhole(ctx context.Context, text string) ([]byte, error) {
	res := m.compiler.Compile(text, directive.Options{AllowInterjection: true})
	audio, err := m.backend.Synthesize(ctx, res.Text, res.Directive)
	if err != nil {
		return nil, err
	}
	return Assemble([][]byte{audio}, m.cfg.LeadInSilenceMs)
}

func (m *Manager) synthesizeChunks(ctx context.Context, fullText string, chunks []string) ([]byte, error) {
	if len(chunks) == 1 {
		res := m.compiler.Compile(chunks[0], directive.Options{AllowInterjection: true})
		audio, err := m.backend.Synthesize(ctx, res.Text, res.Directive)
		if err != nil {
			return nil, err
		}
		return Assemble([][]byte{audio}, m.cfg.LeadInSilenceMs)
	}

	// Multi-chunk: one anchor directive derived from the full text keeps
	// tone consistent across chunks; interjections stay off so fillers do
	// not appear mid-utterance.
	anchor := m.compiler.CompileAnchor(fullText)
	compiled := make([]string, len(chunks))
	for i, chunk := range chunks {
		res := m.compiler.Compile(chunk, directive.Options{
			AllowInterjection: false,
			ForcedStyles:      anchor.Styles,
			DirectiveOverride: anchor.Directive,
		})
		compiled[i] = res.Text
	}

	var parts [][]byte
	var err error
	if anchored, ok := m.backend.(tts.AnchoredBackend); ok {
		parts, err = anchored.SynthesizeChunksWithAnchor(ctx, compiled, anchor.Directive)
	} else {
		parts, err = m.synthesizeConcurrently(ctx, compiled, anchor.Directive)
	}
	if err != nil {
		return nil, err
	}
	return Assemble(parts, m.cfg.LeadInSilenceMs)
}

// synthesizeConcurrently fans chunk synthesis out over plain Backends.
// Result order follows chunk order regardless of completion order.
func (m *Manager) synthesizeConcurrently(ctx context.Context, chunks []string, anchorDirective string) ([][]byte, error) {
	results := make([][]byte, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = tts.NewError(tts.CodeInvalidResponse, "chunk synthesis panicked", fmt.Errorf("%v", r))
				}
			}()
			results[i], errs[i] = m.backend.Synthesize(ctx, chunk, anchorDirective)
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

// complete stores a finished payload and drains everything now deliverable.
// Payloads from an older epoch are dropped: a reset happened after this
// utterance was admitted.
func (m *Manager) complete(epoch, seq uint64, payload *Payload) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.logger.Debug().Uint64("seq", seq).Msg("Dropping payload from superseded epoch")
		return
	}
	m.pending[seq] = payload
	observability.SetReorderBufferDepth(len(m.pending))
	m.mu.Unlock()

	m.drain(epoch)
}

func (m *Manager) drain(epoch uint64) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	for {
		m.mu.Lock()
		if epoch != m.epoch {
			m.mu.Unlock()
			return
		}
		payload, ok := m.pending[m.nextToSend]
		if ok {
			delete(m.pending, m.nextToSend)
			m.nextToSend++
			observability.SetReorderBufferDepth(len(m.pending))
		}
		m.mu.Unlock()
		if !ok {
			return
		}

		if err := m.sink.Send(context.Background(), payload); err != nil {
			observability.RecordSinkSendError()
			m.logger.Error().Err(err).Msg("Failed to deliver payload to sink")
			// Put the slot back so order holds; the next completion
			// retries delivery from here.
			m.mu.Lock()
			if epoch == m.epoch {
				m.nextToSend--
				m.pending[m.nextToSend] = payload
				observability.SetReorderBufferDepth(len(m.pending))
			}
			m.mu.Unlock()
			return
		}
		observability.RecordPayloadDelivered(payload.Silent())
	}
}
