package contract

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"

	"github.com/google/uuid"
)

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByVendorId(ctx context.Context, vendorId uuid.UUID) error
	DeleteByDocumentId(ctx context.Context, vendorId, documentId uuid.UUID) error
	FindAllByVendorId(ctx context.Context, vendorId uuid.UUID) ([]*entity.DocumentChunk, error)
	CountByVendorId(ctx context.Context, vendorId uuid.UUID) (int64, error)
}
