package rag

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/rag/prompt"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type stubRetriever struct {
	results  []vectorindex.Result
	lastOpts vectorindex.RetrieveOptions
	lastK    int
}

func (s *stubRetriever) EnsureIndexLoaded(ctx context.Context, opts vectorindex.EnsureOptions) (vectorindex.Stats, error) {
	return vectorindex.Stats{IndexedChunks: len(s.results)}, nil
}

func (s *stubRetriever) Retrieve(vendorID uuid.UUID, query []float32, k int, opts vectorindex.RetrieveOptions) []vectorindex.Result {
	s.lastOpts = opts
	s.lastK = k
	return s.results
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

func (s *stubEmbedder) GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return nil, errors.New("not used")
}

// scriptedLLM streams tokens and optionally fails after failAfter tokens.
type scriptedLLM struct {
	tokens    []string
	failAfter int
	endless   bool
	calls     atomic.Int32
	history   []llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) error {
	s.calls.Add(1)
	s.history = history
	if s.endless {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := onToken("bla "); err != nil {
				return err
			}
		}
	}
	for i, tok := range s.tokens {
		if i == s.failAfter {
			return apperror.Provider("stub", errors.New("connection reset"))
		}
		if err := onToken(tok); err != nil {
			return err
		}
	}
	if s.failAfter == len(s.tokens) {
		return apperror.Provider("stub", errors.New("connection reset"))
	}
	return nil
}

func newOrchestrator(retriever Retriever, embedder embedding.EmbeddingProvider, provider llm.LLMProvider) *Orchestrator {
	log := logger.NewNop()
	return NewOrchestrator(retriever, embedder, provider, prompt.NewGroundingBuilder(2000), 3, log, log)
}

func shippingResults() []vectorindex.Result {
	docID := uuid.New()
	return []vectorindex.Result{{
		Chunk: &entity.DocumentChunk{Id: entity.ChunkID(docID, 0), DocumentId: docID, Text: "El envío tarda tres días.", Meta: entity.DocumentMeta{Title: "Envíos"}},
		Score: 0.9,
	}}
}

func collect(ch <-chan Token) []Token {
	var out []Token
	for tok := range ch {
		out = append(out, tok)
	}
	return out
}

func TestStreamDeliversTokensInOrder(t *testing.T) {
	provider := &scriptedLLM{tokens: []string{"El ", "envío ", "tarda ", "tres días."}, failAfter: -1}
	o := newOrchestrator(&stubRetriever{results: shippingResults()}, &stubEmbedder{}, provider)

	ch, err := o.Stream(context.Background(), Request{Question: "¿Cuánto tarda el envío?", VendorID: uuid.New()})
	require.NoError(t, err)

	tokens := collect(ch)
	require.Len(t, tokens, 4)
	for _, tok := range tokens {
		assert.False(t, tok.Fallback)
	}
	assert.Equal(t, "tres días.", tokens[3].Text)

	require.Len(t, provider.history, 2)
	assert.Contains(t, provider.history[0].Content, "El envío tarda tres días.")
}

func TestStreamMidStreamFailureEndsWithFallback(t *testing.T) {
	provider := &scriptedLLM{tokens: []string{"El ", "envío ", "tarda"}, failAfter: 2}
	o := newOrchestrator(&stubRetriever{results: shippingResults()}, &stubEmbedder{}, provider)

	ch, err := o.Stream(context.Background(), Request{Question: "envío", VendorID: uuid.New()})
	require.NoError(t, err)

	tokens := collect(ch)
	require.Len(t, tokens, 3)
	assert.Equal(t, Token{Text: "El "}, tokens[0])
	assert.Equal(t, Token{Text: "envío "}, tokens[1])
	assert.Equal(t, Token{Text: FallbackMessage, Fallback: true}, tokens[2])
}

func TestStreamFailureBeforeFirstTokenYieldsFallback(t *testing.T) {
	provider := &scriptedLLM{failAfter: 0}
	o := newOrchestrator(&stubRetriever{}, &stubEmbedder{}, provider)

	ch, err := o.Stream(context.Background(), Request{Question: "envío", VendorID: uuid.New()})
	require.NoError(t, err)

	tokens := collect(ch)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Fallback)
}

func TestStreamQueryEmbeddingFailureIsReturned(t *testing.T) {
	provider := &scriptedLLM{failAfter: -1}
	o := newOrchestrator(&stubRetriever{}, &stubEmbedder{err: apperror.Provider("stub", errors.New("down"))}, provider)

	ch, err := o.Stream(context.Background(), Request{Question: "envío", VendorID: uuid.New()})
	require.Error(t, err)
	assert.Nil(t, ch)
	assert.True(t, apperror.IsKind(err, apperror.KindProvider))
	assert.Zero(t, provider.calls.Load())
}

func TestStreamValidation(t *testing.T) {
	o := newOrchestrator(&stubRetriever{}, &stubEmbedder{}, &scriptedLLM{failAfter: -1})

	_, err := o.Stream(context.Background(), Request{Question: "   ", VendorID: uuid.New()})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = o.Stream(context.Background(), Request{Question: "hola"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestStreamPassesDocumentFilterAndTopK(t *testing.T) {
	retriever := &stubRetriever{results: shippingResults()}
	o := newOrchestrator(retriever, &stubEmbedder{}, &scriptedLLM{tokens: []string{"ok"}, failAfter: -1})

	docID := uuid.New()
	ch, err := o.Stream(context.Background(), Request{Question: "envío", VendorID: uuid.New(), DocumentID: docID})
	require.NoError(t, err)
	collect(ch)

	assert.Equal(t, docID, retriever.lastOpts.DocumentID)
	assert.Equal(t, 3, retriever.lastK)
}

func TestStreamCancellationReleasesProducer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	provider := &scriptedLLM{endless: true}
	o := newOrchestrator(&stubRetriever{results: shippingResults()}, &stubEmbedder{}, provider)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := o.Stream(ctx, Request{Question: "envío", VendorID: uuid.New()})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tok, ok := <-ch
		require.True(t, ok)
		assert.False(t, tok.Fallback)
	}
	cancel()

	for tok := range ch {
		assert.False(t, tok.Fallback, "cancelled streams end without fallback")
	}
}

func TestAnswerCollectsTextAndSources(t *testing.T) {
	results := shippingResults()
	o := newOrchestrator(&stubRetriever{results: results}, &stubEmbedder{}, &scriptedLLM{tokens: []string{"Tres ", "días."}, failAfter: -1})

	answer, err := o.Answer(context.Background(), Request{Question: "envío", VendorID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "Tres días.", answer.Text)
	assert.False(t, answer.Fallback)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Envíos", answer.Sources[0].Title)
	assert.Equal(t, results[0].Chunk.DocumentId, answer.Sources[0].DocumentID)
}

func TestAnswerReplacesPartialTextWithFallback(t *testing.T) {
	o := newOrchestrator(&stubRetriever{}, &stubEmbedder{}, &scriptedLLM{tokens: []string{"Tres ", "días"}, failAfter: 1})

	answer, err := o.Answer(context.Background(), Request{Question: "envío", VendorID: uuid.New()})
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
	assert.Equal(t, FallbackMessage, answer.Text)
}
