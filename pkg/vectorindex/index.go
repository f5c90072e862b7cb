// Package vectorindex keeps per-vendor in-memory chunk vectors for retrieval.
//
// Each vendor's entries live in an immutable snapshot. Builds assemble a new
// snapshot off to the side and install it with a single map write, so readers
// see either the old index or the new one, never a mix.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/metrics"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"
	"github.com/ruuig/tienda-online-sub002/internal/tracer"
	"github.com/ruuig/tienda-online-sub002/pkg/embedding"
	"github.com/ruuig/tienda-online-sub002/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const defaultBatchSize = 32

// SnapshotStore persists index entries so a restarted process can hydrate a
// vendor without re-embedding. Implementations must be safe for concurrent use.
type SnapshotStore interface {
	Replace(ctx context.Context, vendorID uuid.UUID, chunks []*entity.DocumentChunk) error
	ReplaceDocument(ctx context.Context, vendorID, documentID uuid.UUID, chunks []*entity.DocumentChunk) error
	RemoveDocument(ctx context.Context, vendorID, documentID uuid.UUID) error
	Load(ctx context.Context, vendorID uuid.UUID) ([]*entity.DocumentChunk, error)
}

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

type BuildOptions struct {
	VendorID        uuid.UUID
	ReplaceExisting bool
}

type EnsureOptions struct {
	VendorID uuid.UUID
	Force    bool
}

type RetrieveOptions struct {
	// DocumentID restricts results to one document when not uuid.Nil.
	DocumentID uuid.UUID
}

type IndexedDocument struct {
	DocumentID  uuid.UUID `json:"documentId"`
	Title       string    `json:"title"`
	Type        string    `json:"type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Chunks      int       `json:"chunks"`
	LastIndexed time.Time `json:"lastIndexed"`
}

type FailedDocument struct {
	DocumentID uuid.UUID `json:"documentId"`
	Title      string    `json:"title"`
	Error      string    `json:"error"`
}

type Stats struct {
	TotalDocuments int       `json:"totalDocuments"`
	IndexedChunks  int       `json:"indexedChunks"`
	MemoryUsage    int64     `json:"memoryUsage"`
	LastUpdate     time.Time `json:"lastUpdate"`
}

type BuildReport struct {
	Indexed []IndexedDocument `json:"indexed"`
	Failed  []FailedDocument  `json:"failed"`
	Stats   Stats             `json:"stats"`
}

type Result struct {
	Chunk *entity.DocumentChunk
	Score float64
}

// snapshot is never mutated after installation.
type snapshot struct {
	entries    []*entity.DocumentChunk
	documents  []IndexedDocument
	lastUpdate time.Time
}

type Index struct {
	embedder  embedding.EmbeddingProvider
	documents contract.DocumentRepository
	store     SnapshotStore
	logger    logger.ILogger
	cfg       Config
	now       func() time.Time

	mu      sync.RWMutex
	vendors map[uuid.UUID]*snapshot

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	loads singleflight.Group
}

// NewIndex creates an empty index. store may be nil.
func NewIndex(embedder embedding.EmbeddingProvider, documents contract.DocumentRepository, store SnapshotStore, log logger.ILogger, cfg Config) *Index {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Index{
		embedder:  embedder,
		documents: documents,
		store:     store,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
		vendors:   make(map[uuid.UUID]*snapshot),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (ix *Index) vendorLock(vendorID uuid.UUID) *sync.Mutex {
	ix.locksMu.Lock()
	defer ix.locksMu.Unlock()

	l, ok := ix.locks[vendorID]
	if !ok {
		l = &sync.Mutex{}
		ix.locks[vendorID] = l
	}
	return l
}

func (ix *Index) current(vendorID uuid.UUID) (*snapshot, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.vendors[vendorID]
	return s, ok
}

func (ix *Index) install(vendorID uuid.UUID, s *snapshot) {
	ix.mu.Lock()
	ix.vendors[vendorID] = s
	ix.mu.Unlock()

	metrics.IndexedChunks.WithLabelValues(vendorID.String()).Set(float64(len(s.entries)))
}

// IsLoaded reports whether the vendor has an installed index, even an empty one.
func (ix *Index) IsLoaded(vendorID uuid.UUID) bool {
	_, ok := ix.current(vendorID)
	return ok
}

// BuildIndex chunks and embeds documents for one vendor. With ReplaceExisting
// the vendor's index is swapped for the result; otherwise the documents are
// added, replacing any entries they already had. Documents whose embedding
// fails are skipped and reported.
//
// Adding to a vendor that has no index yet first loads the vendor's full
// index, so the added documents never become the whole knowledge base.
func (ix *Index) BuildIndex(ctx context.Context, documents []*entity.Document, opts BuildOptions) (*BuildReport, error) {
	lock := ix.vendorLock(opts.VendorID)
	lock.Lock()
	defer lock.Unlock()

	if !opts.ReplaceExisting {
		if _, ok := ix.current(opts.VendorID); !ok {
			if _, err := ix.loadLocked(ctx, EnsureOptions{VendorID: opts.VendorID}); err != nil {
				return nil, err
			}
		}
	}

	return ix.buildLocked(ctx, documents, opts, false)
}

// buildLocked must be called with the vendor lock held. When lazy is set and
// every document failed to embed nothing is installed, so the next load
// retries instead of serving an empty index.
func (ix *Index) buildLocked(ctx context.Context, documents []*entity.Document, opts BuildOptions, lazy bool) (*BuildReport, error) {
	mode := "append"
	if opts.ReplaceExisting {
		mode = "replace"
	}

	ctx, span := tracer.Start(ctx, "vectorindex", "BuildIndex")
	defer span.End()
	span.SetAttributes(
		attribute.String("vendor_id", opts.VendorID.String()),
		attribute.String("mode", mode),
		attribute.Int("documents", len(documents)),
	)

	start := ix.now()
	report := &BuildReport{}
	var fresh []*entity.DocumentChunk
	var lastErr error
	rebuilt := make(map[uuid.UUID]bool)

	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if doc.VendorId != opts.VendorID {
			ix.logger.Warn("VECTOR_INDEX", "Skipping document owned by another vendor", map[string]interface{}{
				"document_id": doc.Id.String(),
				"vendor_id":   opts.VendorID.String(),
			})
			continue
		}

		chunks, err := ix.embedDocument(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ix.logger.Error("VECTOR_INDEX", "Failed to embed document, skipping", map[string]interface{}{
				"document_id": doc.Id.String(),
				"title":       doc.Title,
				"error":       err.Error(),
			})
			metrics.IndexFailedDocuments.Inc()
			lastErr = err
			report.Failed = append(report.Failed, FailedDocument{DocumentID: doc.Id, Title: doc.Title, Error: err.Error()})
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		rebuilt[doc.Id] = true
		fresh = append(fresh, chunks...)
		report.Indexed = append(report.Indexed, IndexedDocument{
			DocumentID:  doc.Id,
			Title:       doc.Title,
			Type:        doc.Type,
			Category:    doc.Category,
			Chunks:      len(chunks),
			LastIndexed: chunks[0].LastIndexed,
		})
	}

	if lazy && len(report.Indexed) == 0 && len(report.Failed) > 0 {
		return nil, fmt.Errorf("index vendor %s: all %d documents failed to embed: %w", opts.VendorID, len(report.Failed), lastErr)
	}

	next := &snapshot{lastUpdate: ix.now()}
	if opts.ReplaceExisting {
		next.entries = fresh
		next.documents = report.Indexed
	} else {
		prev, _ := ix.current(opts.VendorID)
		next.entries, next.documents = mergeSnapshot(prev, rebuilt, fresh, report.Indexed)
	}

	ix.persist(ctx, opts, fresh, report.Indexed)
	ix.install(opts.VendorID, next)

	report.Stats = next.stats()
	metrics.IndexBuildDuration.WithLabelValues(mode).Observe(ix.now().Sub(start).Seconds())

	ix.logger.Info("VECTOR_INDEX", "Index build completed", map[string]interface{}{
		"vendor_id":       opts.VendorID.String(),
		"mode":            mode,
		"indexed":         len(report.Indexed),
		"failed":          len(report.Failed),
		"indexed_chunks":  report.Stats.IndexedChunks,
		"total_documents": report.Stats.TotalDocuments,
	})

	return report, nil
}

// mergeSnapshot drops the previous entries of every rebuilt document and
// appends the new ones, keeping the order of everything else.
func mergeSnapshot(prev *snapshot, rebuilt map[uuid.UUID]bool, fresh []*entity.DocumentChunk, indexed []IndexedDocument) ([]*entity.DocumentChunk, []IndexedDocument) {
	var entries []*entity.DocumentChunk
	var docs []IndexedDocument
	if prev != nil {
		entries = make([]*entity.DocumentChunk, 0, len(prev.entries)+len(fresh))
		for _, e := range prev.entries {
			if !rebuilt[e.DocumentId] {
				entries = append(entries, e)
			}
		}
		for _, d := range prev.documents {
			if !rebuilt[d.DocumentID] {
				docs = append(docs, d)
			}
		}
	}
	return append(entries, fresh...), append(docs, indexed...)
}

func (ix *Index) embedDocument(ctx context.Context, doc *entity.Document) ([]*entity.DocumentChunk, error) {
	spans := utils.SplitText(doc.Content, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)
	if len(spans) == 0 {
		return nil, nil
	}

	indexedAt := ix.now()
	meta := entity.DocumentMeta{Title: doc.Title, Type: doc.Type, Category: doc.Category}
	chunks := make([]*entity.DocumentChunk, 0, len(spans))

	dimension := 0
	for start := 0; start < len(spans); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(spans) {
			end = len(spans)
		}

		texts := make([]string, end-start)
		for i, s := range spans[start:end] {
			texts[i] = s.Text
		}

		vectors, err := ix.embedder.GenerateBatch(ctx, texts, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding provider returned %d vectors for %d chunks", len(vectors), len(texts))
		}

		for i, vec := range vectors {
			if dimension == 0 {
				dimension = len(vec)
			}
			if len(vec) == 0 || len(vec) != dimension {
				return nil, fmt.Errorf("inconsistent embedding dimension %d (expected %d)", len(vec), dimension)
			}
			s := spans[start+i]
			chunks = append(chunks, &entity.DocumentChunk{
				Id:          entity.ChunkID(doc.Id, s.Index),
				VendorId:    doc.VendorId,
				DocumentId:  doc.Id,
				Index:       s.Index,
				Text:        s.Text,
				TokenCount:  utils.EstimateTokens(s.Text),
				StartOffset: s.Start,
				EndOffset:   s.End,
				Embedding:   vec,
				Meta:        meta,
				LastIndexed: indexedAt,
			})
		}
	}

	return chunks, nil
}

func (ix *Index) persist(ctx context.Context, opts BuildOptions, fresh []*entity.DocumentChunk, indexed []IndexedDocument) {
	if ix.store == nil {
		return
	}

	var err error
	if opts.ReplaceExisting {
		err = ix.store.Replace(ctx, opts.VendorID, fresh)
	} else {
		byDoc := make(map[uuid.UUID][]*entity.DocumentChunk, len(indexed))
		for _, c := range fresh {
			byDoc[c.DocumentId] = append(byDoc[c.DocumentId], c)
		}
		for _, d := range indexed {
			if err = ix.store.ReplaceDocument(ctx, opts.VendorID, d.DocumentID, byDoc[d.DocumentID]); err != nil {
				break
			}
		}
	}

	// The in-memory index is still authoritative; a later rebuild repairs the store.
	if err != nil {
		ix.logger.Warn("VECTOR_INDEX", "Failed to persist index snapshot", map[string]interface{}{
			"vendor_id": opts.VendorID.String(),
			"error":     err.Error(),
		})
	}
}

// EnsureIndexLoaded builds the vendor's index on first use. Concurrent callers
// for the same vendor share one load. With Force the index is rebuilt from the
// document repository even when already loaded.
func (ix *Index) EnsureIndexLoaded(ctx context.Context, opts EnsureOptions) (Stats, error) {
	if !opts.Force {
		if s, ok := ix.current(opts.VendorID); ok {
			return s.stats(), nil
		}
	}

	key := opts.VendorID.String()
	if opts.Force {
		key += ":force"
	}

	// The shared load must not die with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := ix.loads.DoChan(key, func() (interface{}, error) {
		return ix.load(loadCtx, opts)
	})

	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

func (ix *Index) load(ctx context.Context, opts EnsureOptions) (Stats, error) {
	lock := ix.vendorLock(opts.VendorID)
	lock.Lock()
	defer lock.Unlock()

	return ix.loadLocked(ctx, opts)
}

func (ix *Index) loadLocked(ctx context.Context, opts EnsureOptions) (Stats, error) {
	// Another build may have finished while this one waited for the lock.
	if !opts.Force {
		if s, ok := ix.current(opts.VendorID); ok {
			return s.stats(), nil
		}
		if s, ok := ix.hydrate(ctx, opts.VendorID); ok {
			return s.stats(), nil
		}
	}

	docs, err := ix.documents.FindAll(ctx,
		specification.ByVendorID{VendorID: opts.VendorID},
		specification.ActiveDocuments{},
	)
	if err != nil {
		return Stats{}, fmt.Errorf("load documents for vendor %s: %w", opts.VendorID, err)
	}

	report, err := ix.buildLocked(ctx, docs, BuildOptions{VendorID: opts.VendorID, ReplaceExisting: true}, true)
	if err != nil {
		return Stats{}, err
	}
	return report.Stats, nil
}

func (ix *Index) hydrate(ctx context.Context, vendorID uuid.UUID) (*snapshot, bool) {
	if ix.store == nil {
		return nil, false
	}

	start := ix.now()
	chunks, err := ix.store.Load(ctx, vendorID)
	if err != nil {
		ix.logger.Warn("VECTOR_INDEX", "Failed to load persisted snapshot, rebuilding", map[string]interface{}{
			"vendor_id": vendorID.String(),
			"error":     err.Error(),
		})
		return nil, false
	}
	if len(chunks) == 0 {
		return nil, false
	}

	s := &snapshot{entries: chunks, documents: documentsOf(chunks), lastUpdate: latestIndexed(chunks)}
	ix.install(vendorID, s)
	metrics.IndexBuildDuration.WithLabelValues("hydrate").Observe(ix.now().Sub(start).Seconds())

	ix.logger.Info("VECTOR_INDEX", "Index hydrated from persisted snapshot", map[string]interface{}{
		"vendor_id":      vendorID.String(),
		"indexed_chunks": len(chunks),
	})
	return s, true
}

// Retrieve returns at most k entries of the vendor's index by descending
// cosine similarity. Equal scores keep the original chunk order.
func (ix *Index) Retrieve(vendorID uuid.UUID, query []float32, k int, opts RetrieveOptions) []Result {
	if k <= 0 || len(query) == 0 {
		return nil
	}
	s, ok := ix.current(vendorID)
	if !ok || len(s.entries) == 0 {
		return nil
	}

	results := make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		if opts.DocumentID != uuid.Nil && e.DocumentId != opts.DocumentID {
			continue
		}
		if len(e.Embedding) != len(query) {
			continue
		}
		results = append(results, Result{Chunk: e, Score: cosine(query, e.Embedding)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// RemoveDocument drops a document's entries, e.g. after deactivation.
// It reports whether the document was indexed.
func (ix *Index) RemoveDocument(ctx context.Context, vendorID, documentID uuid.UUID) (bool, error) {
	lock := ix.vendorLock(vendorID)
	lock.Lock()
	defer lock.Unlock()

	prev, ok := ix.current(vendorID)
	if !ok {
		return false, nil
	}

	found := false
	for _, d := range prev.documents {
		if d.DocumentID == documentID {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	entries, docs := mergeSnapshot(prev, map[uuid.UUID]bool{documentID: true}, nil, nil)
	if ix.store != nil {
		if err := ix.store.RemoveDocument(ctx, vendorID, documentID); err != nil {
			return false, fmt.Errorf("remove persisted chunks: %w", err)
		}
	}
	ix.install(vendorID, &snapshot{entries: entries, documents: docs, lastUpdate: ix.now()})

	ix.logger.Info("VECTOR_INDEX", "Document removed from index", map[string]interface{}{
		"vendor_id":   vendorID.String(),
		"document_id": documentID.String(),
	})
	return true, nil
}

func (ix *Index) GetIndexedDocuments(vendorID uuid.UUID) []IndexedDocument {
	s, ok := ix.current(vendorID)
	if !ok {
		return []IndexedDocument{}
	}
	out := make([]IndexedDocument, len(s.documents))
	copy(out, s.documents)
	return out
}

func (ix *Index) GetStats(vendorID uuid.UUID) Stats {
	s, ok := ix.current(vendorID)
	if !ok {
		return Stats{}
	}
	return s.stats()
}

func (s *snapshot) stats() Stats {
	var mem int64
	for _, e := range s.entries {
		// vector + text + fixed per-entry overhead (ids, offsets, meta)
		mem += int64(len(e.Embedding)*4 + len(e.Text) + len(e.Meta.Title) + 128)
	}
	return Stats{
		TotalDocuments: len(s.documents),
		IndexedChunks:  len(s.entries),
		MemoryUsage:    mem,
		LastUpdate:     s.lastUpdate,
	}
}

func documentsOf(chunks []*entity.DocumentChunk) []IndexedDocument {
	var docs []IndexedDocument
	pos := make(map[uuid.UUID]int)
	for _, c := range chunks {
		i, ok := pos[c.DocumentId]
		if !ok {
			pos[c.DocumentId] = len(docs)
			docs = append(docs, IndexedDocument{
				DocumentID:  c.DocumentId,
				Title:       c.Meta.Title,
				Type:        c.Meta.Type,
				Category:    c.Meta.Category,
				LastIndexed: c.LastIndexed,
			})
			i = len(docs) - 1
		}
		docs[i].Chunks++
	}
	return docs
}

func latestIndexed(chunks []*entity.DocumentChunk) time.Time {
	var latest time.Time
	for _, c := range chunks {
		if c.LastIndexed.After(latest) {
			latest = c.LastIndexed
		}
	}
	return latest
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
