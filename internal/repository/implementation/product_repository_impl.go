package implementation

import (
	"context"
	"errors"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/mapper"
	"github.com/ruuig/tienda-online-sub002/internal/model"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/scope"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"

	"gorm.io/gorm"
)

type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProductMapper
}

func NewProductRepository(db *gorm.DB) contract.ProductRepository {
	return &ProductRepositoryImpl{
		db:     db,
		mapper: mapper.NewProductMapper(),
	}
}

func (r *ProductRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Find translates a catalog filter into specifications.
func (r *ProductRepositoryImpl) Find(ctx context.Context, filter contract.ProductFilter) ([]*entity.Product, error) {
	specs := []specification.Specification{
		specification.ByVendorID{VendorID: filter.VendorID},
	}
	if filter.Status != "" {
		specs = append(specs, specification.ProductByStatus{Status: filter.Status})
	}
	if len(filter.Categories) > 0 {
		specs = append(specs, specification.ProductCategoryIn{Categories: filter.Categories})
	}
	if len(filter.Or) > 0 {
		specs = append(specs, specification.ProductTextMatchAny{Matches: filter.Or})
	}
	if filter.SortField != "" {
		specs = append(specs, specification.OrderBy{Field: filter.SortField, Desc: filter.SortDesc})
	}
	if filter.Limit > 0 {
		specs = append(specs, specification.Pagination{Limit: filter.Limit})
	}

	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if filter.SortField == "" {
		query = query.Scopes(scope.OrderByCreatedDesc)
	}

	var models []*model.Product
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ProductRepositoryImpl) Create(ctx context.Context, product *entity.Product) error {
	m := r.mapper.ToModel(product)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*product = *r.mapper.ToEntity(m)
	return nil
}

func (r *ProductRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	var m model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ProductRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error) {
	var models []*model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
