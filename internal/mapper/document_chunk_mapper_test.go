package mapper

import (
	"testing"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDocumentChunkMapperKeepsMetaAndVector(t *testing.T) {
	m := NewDocumentChunkMapper()
	docID := uuid.New()
	chunk := &entity.DocumentChunk{
		Id:          entity.ChunkID(docID, 2),
		VendorId:    uuid.New(),
		DocumentId:  docID,
		Index:       2,
		Text:        "Garantía de 12 meses",
		TokenCount:  5,
		StartOffset: 2000,
		EndOffset:   2020,
		Embedding:   []float32{0.6, 0.8},
		Meta:        entity.DocumentMeta{Title: "Garantías", Type: "policy"},
		LastIndexed: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	back := m.ToEntity(m.ToModel(chunk))
	assert.Equal(t, chunk, back)
}
