package mapper

import (
	"encoding/json"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var meta entity.DocumentMeta
	if len(c.DocumentMeta) > 0 {
		// A malformed meta column only loses titles in citations.
		_ = json.Unmarshal(c.DocumentMeta, &meta)
	}

	return &entity.DocumentChunk{
		Id:          c.ChunkId,
		VendorId:    c.VendorId,
		DocumentId:  c.DocumentId,
		Index:       c.ChunkIndex,
		Text:        c.Content,
		TokenCount:  c.TokenCount,
		StartOffset: c.StartOffset,
		EndOffset:   c.EndOffset,
		Embedding:   c.EmbeddingValue.Slice(),
		Meta:        meta,
		LastIndexed: c.LastIndexed,
	}
}

func (m *DocumentChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	meta, _ := json.Marshal(c.Meta)

	return &model.DocumentChunk{
		ChunkId:        c.Id,
		VendorId:       c.VendorId,
		DocumentId:     c.DocumentId,
		ChunkIndex:     c.Index,
		Content:        c.Text,
		TokenCount:     c.TokenCount,
		StartOffset:    c.StartOffset,
		EndOffset:      c.EndOffset,
		EmbeddingValue: pgvector.NewVector(c.Embedding),
		DocumentMeta:   datatypes.JSON(meta),
		LastIndexed:    c.LastIndexed,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *DocumentChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
