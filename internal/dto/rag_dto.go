package dto

import (
	"time"

	"github.com/google/uuid"
)

type RebuildIndexRequest struct {
	Force bool `json:"force"`
}

type IndexStatsResponse struct {
	VendorId       uuid.UUID  `json:"vendor_id"`
	Loaded         bool       `json:"loaded"`
	TotalDocuments int        `json:"total_documents"`
	IndexedChunks  int        `json:"indexed_chunks"`
	MemoryUsage    int64      `json:"memory_usage"`
	LastUpdate     *time.Time `json:"last_update"`
}

type IndexedDocumentResponse struct {
	DocumentId  uuid.UUID `json:"document_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type,omitempty"`
	Category    string    `json:"category,omitempty"`
	Chunks      int       `json:"chunks"`
	LastIndexed time.Time `json:"last_indexed"`
}

type FailedDocumentResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Error      string    `json:"error"`
}

type RebuildIndexResponse struct {
	Rebuilt bool                      `json:"rebuilt"`
	Stats   IndexStatsResponse        `json:"stats"`
	Indexed []IndexedDocumentResponse `json:"indexed,omitempty"`
	Failed  []FailedDocumentResponse  `json:"failed,omitempty"`
}

// IndexDocumentMessage is the payload of a single-document indexing job.
type IndexDocumentMessage struct {
	VendorId   uuid.UUID `json:"vendor_id"`
	DocumentId uuid.UUID `json:"document_id"`
}
