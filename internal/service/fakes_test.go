package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"
	"github.com/ruuig/tienda-online-sub002/internal/repository/unitofwork"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"
	"github.com/ruuig/tienda-online-sub002/pkg/vectorindex"

	"github.com/google/uuid"
)

// ==========================
// Repositories
// ==========================

type fakeUnitOfWork struct {
	products  contract.ProductRepository
	documents contract.DocumentRepository
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) ProductRepository() contract.ProductRepository   { return u.products }
func (u *fakeUnitOfWork) DocumentRepository() contract.DocumentRepository { return u.documents }
func (u *fakeUnitOfWork) DocumentChunkRepository() contract.DocumentChunkRepository {
	return nil
}

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

// fakeDocuments filters by ByID / ByVendorID / ActiveDocuments.
type fakeDocuments struct {
	docs []*entity.Document
}

func (f *fakeDocuments) match(d *entity.Document, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			if d.Id != spec.ID {
				return false
			}
		case specification.ByVendorID:
			if d.VendorId != spec.VendorID {
				return false
			}
		case specification.ActiveDocuments:
			if !d.IsActive {
				return false
			}
		}
	}
	return true
}

func (f *fakeDocuments) Create(ctx context.Context, document *entity.Document) error {
	f.docs = append(f.docs, document)
	return nil
}

func (f *fakeDocuments) Update(ctx context.Context, document *entity.Document) error {
	return nil
}

func (f *fakeDocuments) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	for _, d := range f.docs {
		if f.match(d, specs) {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDocuments) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range f.docs {
		if f.match(d, specs) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	docs, _ := f.FindAll(ctx, specs...)
	return int64(len(docs)), nil
}

type fakeProducts struct {
	products []*entity.Product
	finds    atomic.Int32
}

func (f *fakeProducts) Find(ctx context.Context, filter contract.ProductFilter) ([]*entity.Product, error) {
	f.finds.Add(1)
	return f.products, nil
}

func (f *fakeProducts) Create(ctx context.Context, product *entity.Product) error {
	return nil
}

func (f *fakeProducts) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	return nil, nil
}

func (f *fakeProducts) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error) {
	return f.products, nil
}

// ==========================
// Providers
// ==========================

// countingLLM answers Chat with reply and counts every call.
type countingLLM struct {
	reply string
	err   error
	calls atomic.Int32

	mu      sync.Mutex
	history []llm.Message
}

func (c *countingLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.history = history
	c.mu.Unlock()
	return c.reply, c.err
}

func (c *countingLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

func (c *countingLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) error {
	c.calls.Add(1)
	return errors.New("not used")
}

type stubAnswerer struct {
	answer *rag.Answer
	err    error
	calls  atomic.Int32
}

func (s *stubAnswerer) Answer(ctx context.Context, req rag.Request) (*rag.Answer, error) {
	s.calls.Add(1)
	return s.answer, s.err
}

// ==========================
// Index and jobs
// ==========================

type fakeIndex struct {
	loaded  bool
	builds  []vectorindex.BuildOptions
	built   [][]*entity.Document
	removed []uuid.UUID
	report  *vectorindex.BuildReport
}

func (f *fakeIndex) BuildIndex(ctx context.Context, documents []*entity.Document, opts vectorindex.BuildOptions) (*vectorindex.BuildReport, error) {
	f.builds = append(f.builds, opts)
	f.built = append(f.built, documents)
	f.loaded = true
	if f.report != nil {
		return f.report, nil
	}
	return &vectorindex.BuildReport{Stats: vectorindex.Stats{TotalDocuments: len(documents)}}, nil
}

func (f *fakeIndex) RemoveDocument(ctx context.Context, vendorID, documentID uuid.UUID) (bool, error) {
	f.removed = append(f.removed, documentID)
	return true, nil
}

func (f *fakeIndex) GetIndexedDocuments(vendorID uuid.UUID) []vectorindex.IndexedDocument {
	return nil
}

func (f *fakeIndex) GetStats(vendorID uuid.UUID) vectorindex.Stats {
	return vectorindex.Stats{TotalDocuments: 3, IndexedChunks: 12}
}

func (f *fakeIndex) IsLoaded(vendorID uuid.UUID) bool {
	return f.loaded
}

type recordingJobs struct {
	mu   sync.Mutex
	jobs []dto.IndexDocumentMessage
}

func (r *recordingJobs) PublishIndexDocument(ctx context.Context, payload dto.IndexDocumentMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, payload)
	return nil
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.EventType())
	return nil
}
