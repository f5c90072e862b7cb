package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexingRag records IndexDocument calls and fails the first `failures`.
type indexingRag struct {
	mu       sync.Mutex
	calls    []dto.IndexDocumentMessage
	failures int
	err      error
}

func (r *indexingRag) IndexDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) (*dto.RebuildIndexResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, dto.IndexDocumentMessage{VendorId: vendorId, DocumentId: documentId})
	if r.failures > 0 {
		r.failures--
		return nil, r.err
	}
	return &dto.RebuildIndexResponse{Rebuilt: true}, nil
}

func (r *indexingRag) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *indexingRag) StreamAnswer(ctx context.Context, request *dto.StreamAnswerRequest) (<-chan rag.Token, error) {
	return nil, errors.New("not used")
}

func (r *indexingRag) RebuildIndex(ctx context.Context, vendorId uuid.UUID, force bool) (*dto.RebuildIndexResponse, error) {
	return nil, errors.New("not used")
}

func (r *indexingRag) GetStats(ctx context.Context, vendorId uuid.UUID) (*dto.IndexStatsResponse, error) {
	return nil, errors.New("not used")
}

func (r *indexingRag) GetIndexedDocuments(ctx context.Context, vendorId uuid.UUID) ([]dto.IndexedDocumentResponse, error) {
	return nil, errors.New("not used")
}

func (r *indexingRag) EnqueueDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	return errors.New("not used")
}

func (r *indexingRag) RemoveDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	return errors.New("not used")
}

type recordingInvalidator struct {
	vendors []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(vendorID uuid.UUID) {
	r.vendors = append(r.vendors, vendorID)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestConsumeIndexesQueuedDocuments(t *testing.T) {
	pubSub := newPubSub(t)
	ragSvc := &indexingRag{}
	consumer := NewConsumerService(pubSub, "index_document", ragSvc, nil, nil, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	jobs := NewPublisherService("index_document", pubSub)
	job := dto.IndexDocumentMessage{VendorId: uuid.New(), DocumentId: uuid.New()}
	require.NoError(t, jobs.PublishIndexDocument(ctx, job))

	assert.Eventually(t, func() bool { return ragSvc.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	ragSvc.mu.Lock()
	assert.Equal(t, job, ragSvc.calls[0])
	ragSvc.mu.Unlock()
}

func TestConsumeRetriesFailedJobs(t *testing.T) {
	pubSub := newPubSub(t)
	ragSvc := &indexingRag{failures: 1, err: apperror.Provider("stub", errors.New("rate limited"))}
	consumer := NewConsumerService(pubSub, "index_document", ragSvc, nil, nil, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	jobs := NewPublisherService("index_document", pubSub)
	require.NoError(t, jobs.PublishIndexDocument(ctx, dto.IndexDocumentMessage{VendorId: uuid.New(), DocumentId: uuid.New()}))

	// Nacked once, redelivered, then acked.
	assert.Eventually(t, func() bool { return ragSvc.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestConsumeDropsMissingDocuments(t *testing.T) {
	pubSub := newPubSub(t)
	ragSvc := &indexingRag{failures: 1, err: apperror.NotFound("document", "x")}
	consumer := NewConsumerService(pubSub, "index_document", ragSvc, nil, nil, nil, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	jobs := NewPublisherService("index_document", pubSub)
	require.NoError(t, jobs.PublishIndexDocument(ctx, dto.IndexDocumentMessage{VendorId: uuid.New(), DocumentId: uuid.New()}))

	assert.Eventually(t, func() bool { return ragSvc.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return ragSvc.count() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestStoreEventHandlers(t *testing.T) {
	jobs := &recordingJobs{}
	catalogs := &recordingInvalidator{}
	cs := &consumerService{jobs: jobs, catalogs: catalogs, logger: logger.NewNop()}
	vendorID := uuid.New()
	documentID := uuid.New()

	err := cs.handleCatalogUpdated(context.Background(), events.BaseEvent{
		Type: events.TypeCatalogUpdated,
		Data: map[string]interface{}{"vendorId": vendorID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{vendorID}, catalogs.vendors)

	err = cs.handleDocumentChanged(context.Background(), events.BaseEvent{
		Type: events.TypeDocumentChanged,
		Data: map[string]interface{}{"vendorId": vendorID.String(), "documentId": documentID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, []dto.IndexDocumentMessage{{VendorId: vendorID, DocumentId: documentID}}, jobs.jobs)

	// Malformed events are dropped, not retried.
	err = cs.handleDocumentChanged(context.Background(), events.BaseEvent{
		Type: events.TypeDocumentChanged,
		Data: map[string]interface{}{"vendorId": vendorID.String()},
	})
	assert.NoError(t, err)
	assert.Len(t, jobs.jobs, 1)
}
