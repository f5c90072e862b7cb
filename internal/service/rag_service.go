package service

import (
	"context"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"
	"github.com/ruuig/tienda-online-sub002/internal/repository/unitofwork"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/google/uuid"
)

type IRagService interface {
	StreamAnswer(ctx context.Context, request *dto.StreamAnswerRequest) (<-chan rag.Token, error)
	RebuildIndex(ctx context.Context, vendorId uuid.UUID, force bool) (*dto.RebuildIndexResponse, error)
	GetStats(ctx context.Context, vendorId uuid.UUID) (*dto.IndexStatsResponse, error)
	GetIndexedDocuments(ctx context.Context, vendorId uuid.UUID) ([]dto.IndexedDocumentResponse, error)
	EnqueueDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error
	IndexDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) (*dto.RebuildIndexResponse, error)
	RemoveDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error
}

// VectorIndex is the part of vectorindex.Index the service drives.
type VectorIndex interface {
	BuildIndex(ctx context.Context, documents []*entity.Document, opts vectorindex.BuildOptions) (*vectorindex.BuildReport, error)
	RemoveDocument(ctx context.Context, vendorID, documentID uuid.UUID) (bool, error)
	GetIndexedDocuments(vendorID uuid.UUID) []vectorindex.IndexedDocument
	GetStats(vendorID uuid.UUID) vectorindex.Stats
	IsLoaded(vendorID uuid.UUID) bool
}

// Streamer streams grounded answers.
type Streamer interface {
	Stream(ctx context.Context, req rag.Request) (<-chan rag.Token, error)
}

type ragService struct {
	uowFactory unitofwork.RepositoryFactory
	index      VectorIndex
	streamer   Streamer
	jobs       IPublisherService
	events     events.Publisher
	logger     logger.ILogger
}

func NewRagService(
	uowFactory unitofwork.RepositoryFactory,
	index VectorIndex,
	streamer Streamer,
	jobs IPublisherService,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IRagService {
	return &ragService{
		uowFactory: uowFactory,
		index:      index,
		streamer:   streamer,
		jobs:       jobs,
		events:     eventPublisher,
		logger:     log,
	}
}

func (s *ragService) StreamAnswer(ctx context.Context, request *dto.StreamAnswerRequest) (<-chan rag.Token, error) {
	req := rag.Request{Question: request.Question, VendorID: request.VendorId}
	if request.DocumentId != "" {
		documentId, err := uuid.Parse(request.DocumentId)
		if err != nil {
			return nil, apperror.Validation("invalid document_id", err.Error())
		}
		req.DocumentID = documentId
	}
	return s.streamer.Stream(ctx, req)
}

// RebuildIndex rebuilds the vendor's index from its active documents. Without
// force an already loaded index is left alone and its stats returned.
func (s *ragService) RebuildIndex(ctx context.Context, vendorId uuid.UUID, force bool) (*dto.RebuildIndexResponse, error) {
	if !force && s.index.IsLoaded(vendorId) {
		return &dto.RebuildIndexResponse{Rebuilt: false, Stats: s.stats(vendorId)}, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByVendorID{VendorID: vendorId},
		specification.ActiveDocuments{},
	)
	if err != nil {
		return nil, err
	}

	report, err := s.index.BuildIndex(ctx, documents, vectorindex.BuildOptions{VendorID: vendorId, ReplaceExisting: true})
	if err != nil {
		return nil, err
	}

	event := events.NewIndexRebuilt(vendorId.String(), report.Stats.TotalDocuments, report.Stats.IndexedChunks, len(report.Failed))
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("RAG", "Failed to publish rebuild event", map[string]interface{}{
			"vendor_id": vendorId.String(),
			"error":     err.Error(),
		})
	}

	return s.toRebuildResponse(vendorId, report), nil
}

func (s *ragService) GetStats(ctx context.Context, vendorId uuid.UUID) (*dto.IndexStatsResponse, error) {
	stats := s.stats(vendorId)
	return &stats, nil
}

func (s *ragService) GetIndexedDocuments(ctx context.Context, vendorId uuid.UUID) ([]dto.IndexedDocumentResponse, error) {
	return toIndexedDocuments(s.index.GetIndexedDocuments(vendorId)), nil
}

// EnqueueDocument schedules a single-document index update. The document must
// belong to the vendor.
func (s *ragService) EnqueueDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	if _, err := s.findDocument(ctx, vendorId, documentId); err != nil {
		return err
	}
	return s.jobs.PublishIndexDocument(ctx, dto.IndexDocumentMessage{VendorId: vendorId, DocumentId: documentId})
}

// IndexDocument adds or refreshes one document. Inactive documents are removed
// from the index instead.
func (s *ragService) IndexDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) (*dto.RebuildIndexResponse, error) {
	document, err := s.findDocument(ctx, vendorId, documentId)
	if err != nil {
		return nil, err
	}

	if !document.IsActive {
		if err := s.RemoveDocument(ctx, vendorId, documentId); err != nil {
			return nil, err
		}
		return &dto.RebuildIndexResponse{Rebuilt: true, Stats: s.stats(vendorId)}, nil
	}

	report, err := s.index.BuildIndex(ctx, []*entity.Document{document}, vectorindex.BuildOptions{VendorID: vendorId})
	if err != nil {
		return nil, err
	}
	return s.toRebuildResponse(vendorId, report), nil
}

func (s *ragService) RemoveDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	removed, err := s.index.RemoveDocument(ctx, vendorId, documentId)
	if err != nil {
		return err
	}
	s.logger.Info("RAG", "Document removed from index", map[string]interface{}{
		"vendor_id":   vendorId.String(),
		"document_id": documentId.String(),
		"removed":     removed,
	})
	return nil
}

func (s *ragService) findDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: documentId},
		specification.ByVendorID{VendorID: vendorId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperror.NotFound("document", documentId.String())
	}
	return document, nil
}

func (s *ragService) stats(vendorId uuid.UUID) dto.IndexStatsResponse {
	stats := s.index.GetStats(vendorId)
	res := dto.IndexStatsResponse{
		VendorId:       vendorId,
		Loaded:         s.index.IsLoaded(vendorId),
		TotalDocuments: stats.TotalDocuments,
		IndexedChunks:  stats.IndexedChunks,
		MemoryUsage:    stats.MemoryUsage,
	}
	if !stats.LastUpdate.IsZero() {
		lastUpdate := stats.LastUpdate.UTC().Truncate(time.Second)
		res.LastUpdate = &lastUpdate
	}
	return res
}

func (s *ragService) toRebuildResponse(vendorId uuid.UUID, report *vectorindex.BuildReport) *dto.RebuildIndexResponse {
	res := &dto.RebuildIndexResponse{
		Rebuilt: true,
		Stats:   s.stats(vendorId),
		Indexed: toIndexedDocuments(report.Indexed),
	}
	for _, f := range report.Failed {
		res.Failed = append(res.Failed, dto.FailedDocumentResponse{DocumentId: f.DocumentID, Title: f.Title, Error: f.Error})
	}
	return res
}

func toIndexedDocuments(documents []vectorindex.IndexedDocument) []dto.IndexedDocumentResponse {
	out := make([]dto.IndexedDocumentResponse, len(documents))
	for i, d := range documents {
		out[i] = dto.IndexedDocumentResponse{
			DocumentId:  d.DocumentID,
			Title:       d.Title,
			Type:        d.Type,
			Category:    d.Category,
			Chunks:      d.Chunks,
			LastIndexed: d.LastIndexed,
		}
	}
	return out
}
