package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intent_decisions_total",
			Help: "Inbound messages by classified intent",
		},
		[]string{"intent"},
	)

	Refusals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_refusals_total",
			Help: "Off-topic messages answered with the canned refusal",
		},
	)

	IndexBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_index_build_duration_seconds",
			Help:    "Duration of vector index builds in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"mode"},
	)

	IndexFailedDocuments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_index_failed_documents_total",
			Help: "Documents skipped during index builds because embedding failed",
		},
	)

	IndexedChunks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_indexed_chunks",
			Help: "Chunks currently held in the vector index per vendor",
		},
		[]string{"vendor"},
	)

	StreamedTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_streamed_tokens_total",
			Help: "Tokens delivered by RAG answer streams",
		},
	)

	StreamFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_stream_fallbacks_total",
			Help: "RAG streams that ended with the fallback message",
		},
	)

	CartTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cart_transitions_total",
			Help: "Conversational cart phase transitions",
		},
		[]string{"from", "to"},
	)
)
