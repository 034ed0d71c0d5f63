package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	utterancesAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_gateway_utterances_admitted_total",
		Help: "Total number of utterances admitted for synthesis",
	})

	payloadsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_gateway_payloads_delivered_total",
		Help: "Total number of audio payloads delivered to the sink",
	}, []string{"kind"}) // kind: "audio" or "silent"

	reorderBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speech_gateway_reorder_buffer_depth",
		Help: "Payloads buffered waiting for their turn in delivery order",
	})

	chunkPlanSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_gateway_chunk_plan_size",
		Help:    "Number of chunks planned per utterance",
		Buckets: []float64{1, 2, 3},
	})

	// Synthesis backend metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_gateway_synthesis_requests_total",
		Help: "Total number of synthesis backend requests",
	}, []string{"model", "status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speech_gateway_synthesis_latency_seconds",
		Help:    "Synthesis backend latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Delivery metrics
	sinkSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_gateway_sink_send_errors_total",
		Help: "Total number of failed sends to the delivery sink",
	})

	// Recognizer metrics
	bargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_gateway_barge_ins_total",
		Help: "Total number of barge-in interruptions detected",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "speech_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordUtteranceAdmitted increments the admitted utterance counter
func RecordUtteranceAdmitted() {
	utterancesAdmitted.Inc()
}

// RecordPayloadDelivered increments the delivered payload counter
func RecordPayloadDelivered(silent bool) {
	kind := "audio"
	if silent {
		kind = "silent"
	}
	payloadsDelivered.WithLabelValues(kind).Inc()
}

// SetReorderBufferDepth records the current reorder buffer depth
func SetReorderBufferDepth(depth int) {
	reorderBufferDepth.Set(float64(depth))
}

// RecordChunkPlanSize records how many chunks an utterance was split into
func RecordChunkPlanSize(n int) {
	chunkPlanSize.Observe(float64(n))
}

// RecordSynthesisRequest records the outcome of one backend request
func RecordSynthesisRequest(model string, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(model, status).Inc()
	synthesisLatency.Observe(seconds)
}

// RecordSinkSendError increments the sink error counter
func RecordSinkSendError() {
	sinkSendErrors.Inc()
}

// RecordBargeIn increments the barge-in counter
func RecordBargeIn() {
	bargeIns.Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments the circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
