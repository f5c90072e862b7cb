package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DocumentChunk persists one vector index entry. Rows are replaced wholesale
// when a vendor's index is rebuilt, so there is no soft delete.
type DocumentChunk struct {
	ChunkId        string          `gorm:"type:varchar(80);primaryKey"`
	VendorId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentId     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChunkIndex     int             `gorm:"not null;default:0"` // 0-based index for ordering
	Content        string          `gorm:"type:text"`
	TokenCount     int             `gorm:"not null;default:0"`
	StartOffset    int             `gorm:"not null"`
	EndOffset      int             `gorm:"not null"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 both use 768 dimensions
	DocumentMeta   datatypes.JSON  `gorm:"type:jsonb"`
	LastIndexed    time.Time       `gorm:"not null"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
