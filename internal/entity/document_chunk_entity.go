package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentMeta is the document information carried by every indexed chunk.
type DocumentMeta struct {
	Title    string `json:"title"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
}

// DocumentChunk is one embedded slice of a document. Chunks are immutable for
// a given document version and regenerated on rebuild.
type DocumentChunk struct {
	Id          string
	VendorId    uuid.UUID
	DocumentId  uuid.UUID
	Index       int
	Text        string
	TokenCount  int
	StartOffset int
	EndOffset   int
	Embedding   []float32
	Meta        DocumentMeta
	LastIndexed time.Time
}

// ChunkID is deterministic so rebuilding the same document yields the same ids.
func ChunkID(documentId uuid.UUID, index int) string {
	return fmt.Sprintf("%s:%d", documentId, index)
}
