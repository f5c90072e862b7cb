// Package rag answers knowledge-base questions from a vendor's indexed
// documents and streams the generated answer.
package rag

import (
	"context"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/metrics"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/tracer"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/rag/prompt"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultTopK = 5

	// FallbackMessage replaces the rest of an answer when generation fails
	// after streaming started.
	FallbackMessage = "Lo siento, tuve un problema al generar la respuesta. Por favor, intenta de nuevo en unos momentos."
)

type Request struct {
	Question   string
	DocumentID uuid.UUID // optional, uuid.Nil searches every document
	VendorID   uuid.UUID
}

// Token is one fragment of a streamed answer. A Fallback token is always the
// last one on its channel.
type Token struct {
	Text     string
	Fallback bool
}

type Source struct {
	DocumentID uuid.UUID `json:"documentId"`
	Title      string    `json:"title"`
	ChunkIndex int       `json:"chunkIndex"`
	Score      float64   `json:"score"`
}

type Answer struct {
	Text     string
	Fallback bool
	Sources  []Source
}

type Retriever interface {
	EnsureIndexLoaded(ctx context.Context, opts vectorindex.EnsureOptions) (vectorindex.Stats, error)
	Retrieve(vendorID uuid.UUID, query []float32, k int, opts vectorindex.RetrieveOptions) []vectorindex.Result
}

type Orchestrator struct {
	retriever Retriever
	embedder  embedding.EmbeddingProvider
	llm       llm.LLMProvider
	builder   *prompt.GroundingBuilder
	topK      int
	logger    logger.ILogger
	trace     logger.ILogger
}

// NewOrchestrator wires the pipeline. trace receives the retrieval and prompt
// details of every answer and may be the same logger as log.
func NewOrchestrator(retriever Retriever, embedder embedding.EmbeddingProvider, provider llm.LLMProvider, builder *prompt.GroundingBuilder, topK int, log, trace logger.ILogger) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Orchestrator{
		retriever: retriever,
		embedder:  embedder,
		llm:       provider,
		builder:   builder,
		topK:      topK,
		logger:    log,
		trace:     trace,
	}
}

// Stream answers req token by token. Errors before generation (bad request,
// index load, query embedding) are returned directly. Once the channel is
// returned no error is raised: a generation failure yields one fallback token
// and the channel closes. Cancelling ctx stops generation and closes the
// channel without a fallback.
func (o *Orchestrator) Stream(ctx context.Context, req Request) (<-chan Token, error) {
	messages, _, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan Token)
	go o.generate(ctx, req, messages, out)
	return out, nil
}

// Answer runs the same pipeline and collects the stream.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Answer, error) {
	messages, sources, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan Token)
	go o.generate(ctx, req, messages, out)

	answer := &Answer{Sources: sources}
	var sb strings.Builder
	for tok := range out {
		if tok.Fallback {
			answer.Fallback = true
			sb.Reset()
		}
		sb.WriteString(tok.Text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer.Text = sb.String()
	return answer, nil
}

func (o *Orchestrator) prepare(ctx context.Context, req Request) ([]llm.Message, []Source, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, nil, apperror.Validation("question is required", "")
	}
	if req.VendorID == uuid.Nil {
		return nil, nil, apperror.Validation("vendorId is required", "")
	}

	ctx, span := tracer.Start(ctx, "rag", "Retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("vendor_id", req.VendorID.String()))

	if _, err := o.retriever.EnsureIndexLoaded(ctx, vectorindex.EnsureOptions{VendorID: req.VendorID}); err != nil {
		return nil, nil, err
	}

	queryVec, err := o.embedder.Generate(ctx, question, embedding.TaskRetrievalQuery)
	if err != nil {
		o.logger.Error("RAG", "Failed to embed question", map[string]interface{}{
			"vendor_id": req.VendorID.String(),
			"error":     err.Error(),
		})
		return nil, nil, err
	}

	results := o.retriever.Retrieve(req.VendorID, queryVec.Embedding.Values, o.topK, vectorindex.RetrieveOptions{DocumentID: req.DocumentID})
	span.SetAttributes(attribute.Int("results", len(results)))

	sources := make([]Source, len(results))
	traced := make([]map[string]interface{}, len(results))
	for i, r := range results {
		sources[i] = Source{DocumentID: r.Chunk.DocumentId, Title: r.Chunk.Meta.Title, ChunkIndex: r.Chunk.Index, Score: r.Score}
		traced[i] = map[string]interface{}{"chunk_id": r.Chunk.Id, "title": r.Chunk.Meta.Title, "score": r.Score}
	}

	messages := o.builder.Build(question, results)

	o.trace.Debug("RAG", "Grounded prompt built", map[string]interface{}{
		"vendor_id":     req.VendorID.String(),
		"document_id":   req.DocumentID.String(),
		"question":      question,
		"results":       traced,
		"system_prompt": messages[0].Content,
	})

	return messages, sources, nil
}

func (o *Orchestrator) generate(ctx context.Context, req Request, messages []llm.Message, out chan<- Token) {
	defer close(out)

	ctx, span := tracer.Start(ctx, "rag", "Generate")
	defer span.End()

	sent := 0
	err := o.llm.ChatStream(ctx, messages, func(tok string) error {
		select {
		case out <- Token{Text: tok}:
			sent++
			metrics.StreamedTokens.Inc()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if ctx.Err() != nil {
		o.logger.Debug("RAG", "Answer stream cancelled", map[string]interface{}{
			"vendor_id": req.VendorID.String(),
			"tokens":    sent,
		})
		return
	}
	if err == nil && sent > 0 {
		return
	}

	details := map[string]interface{}{
		"vendor_id": req.VendorID.String(),
		"tokens":    sent,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	o.logger.Error("RAG", "Answer generation failed, sending fallback", details)
	metrics.StreamFallbacks.Inc()
	span.SetAttributes(attribute.Bool("fallback", true))

	select {
	case out <- Token{Text: FallbackMessage, Fallback: true}:
	case <-ctx.Done():
	}
}
