package implementation

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/mapper"
	"github.com/ruuig/tienda-online-sub002/internal/model"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const chunkInsertBatchSize = 100

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	return r.db.WithContext(ctx).CreateInBatches(models, chunkInsertBatchSize).Error
}

func (r *DocumentChunkRepositoryImpl) DeleteByVendorId(ctx context.Context, vendorId uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(scope.ByVendor(vendorId)).Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, vendorId, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("vendor_id = ? AND document_id = ?", vendorId, documentId).
		Delete(&model.DocumentChunk{}).Error
}

// FindAllByVendorId returns the vendor's chunks in index order: documents as
// they were indexed, then chunk position.
func (r *DocumentChunkRepositoryImpl) FindAllByVendorId(ctx context.Context, vendorId uuid.UUID) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	err := r.db.WithContext(ctx).
		Scopes(scope.ByVendor(vendorId), scope.ChunkReadingOrder).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) CountByVendorId(ctx context.Context, vendorId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Scopes(scope.ByVendor(vendorId)).Count(&count).Error
	return count, err
}
