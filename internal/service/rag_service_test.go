package service

import (
	"context"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStreamer struct {
	last rag.Request
}

func (s *stubStreamer) Stream(ctx context.Context, req rag.Request) (<-chan rag.Token, error) {
	s.last = req
	ch := make(chan rag.Token)
	close(ch)
	return ch, nil
}

type ragFixture struct {
	service   IRagService
	index     *fakeIndex
	documents *fakeDocuments
	jobs      *recordingJobs
	events    *recordingEvents
	streamer  *stubStreamer
	vendorID  uuid.UUID
}

func newRagFixture(t *testing.T) *ragFixture {
	t.Helper()
	vendorID := uuid.New()
	documents := &fakeDocuments{docs: []*entity.Document{
		{Id: uuid.New(), VendorId: vendorID, Title: "Política de devoluciones", Content: "Tienes 30 días.", IsActive: true},
		{Id: uuid.New(), VendorId: vendorID, Title: "Borrador", Content: "Sin publicar.", IsActive: false},
		{Id: uuid.New(), VendorId: uuid.New(), Title: "Otra tienda", Content: "Ajeno.", IsActive: true},
	}}
	f := &ragFixture{
		index:     &fakeIndex{},
		documents: documents,
		jobs:      &recordingJobs{},
		events:    &recordingEvents{},
		streamer:  &stubStreamer{},
		vendorID:  vendorID,
	}
	uow := &fakeUnitOfWork{documents: documents}
	f.service = NewRagService(&fakeFactory{uow: uow}, f.index, f.streamer, f.jobs, f.events, logger.NewNop())
	return f
}

func TestRebuildIndexSkipsLoadedIndexUnlessForced(t *testing.T) {
	f := newRagFixture(t)
	f.index.loaded = true

	res, err := f.service.RebuildIndex(context.Background(), f.vendorID, false)
	require.NoError(t, err)
	assert.False(t, res.Rebuilt)
	assert.True(t, res.Stats.Loaded)
	assert.Equal(t, 12, res.Stats.IndexedChunks)
	assert.Empty(t, f.index.builds)
	assert.Empty(t, f.events.types)
}

func TestRebuildIndexUsesActiveVendorDocuments(t *testing.T) {
	f := newRagFixture(t)
	f.index.report = &vectorindex.BuildReport{
		Stats:  vectorindex.Stats{TotalDocuments: 1, IndexedChunks: 2},
		Failed: []vectorindex.FailedDocument{{DocumentID: uuid.New(), Title: "Roto", Error: "embedding failed"}},
	}

	res, err := f.service.RebuildIndex(context.Background(), f.vendorID, true)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)

	require.Len(t, f.index.built, 1)
	require.Len(t, f.index.built[0], 1)
	assert.Equal(t, "Política de devoluciones", f.index.built[0][0].Title)
	assert.Equal(t, vectorindex.BuildOptions{VendorID: f.vendorID, ReplaceExisting: true}, f.index.builds[0])

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "Roto", res.Failed[0].Title)
	assert.Equal(t, []string{events.TypeIndexRebuilt}, f.events.types)
}

func TestEnqueueDocument(t *testing.T) {
	f := newRagFixture(t)
	doc := f.documents.docs[0]

	require.NoError(t, f.service.EnqueueDocument(context.Background(), f.vendorID, doc.Id))
	assert.Equal(t, []dto.IndexDocumentMessage{{VendorId: f.vendorID, DocumentId: doc.Id}}, f.jobs.jobs)

	// Documents of another vendor are not visible.
	foreign := f.documents.docs[2]
	err := f.service.EnqueueDocument(context.Background(), f.vendorID, foreign.Id)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	assert.Len(t, f.jobs.jobs, 1)
}

func TestIndexDocument(t *testing.T) {
	f := newRagFixture(t)

	active := f.documents.docs[0]
	_, err := f.service.IndexDocument(context.Background(), f.vendorID, active.Id)
	require.NoError(t, err)
	require.Len(t, f.index.builds, 1)
	assert.False(t, f.index.builds[0].ReplaceExisting)
	assert.Equal(t, []*entity.Document{active}, f.index.built[0])

	inactive := f.documents.docs[1]
	_, err = f.service.IndexDocument(context.Background(), f.vendorID, inactive.Id)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{inactive.Id}, f.index.removed)
	assert.Len(t, f.index.builds, 1)
}

func TestStreamAnswerParsesDocumentFilter(t *testing.T) {
	f := newRagFixture(t)
	docID := uuid.New()

	_, err := f.service.StreamAnswer(context.Background(), &dto.StreamAnswerRequest{
		Question:   "¿Cuánto tarda el envío?",
		DocumentId: docID.String(),
		VendorId:   f.vendorID,
	})
	require.NoError(t, err)
	assert.Equal(t, docID, f.streamer.last.DocumentID)
	assert.Equal(t, f.vendorID, f.streamer.last.VendorID)

	_, err = f.service.StreamAnswer(context.Background(), &dto.StreamAnswerRequest{
		Question:   "envío",
		DocumentId: "not-a-uuid",
		VendorId:   f.vendorID,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
