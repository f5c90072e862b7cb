package contract

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"

	"github.com/google/uuid"
)

// ProductFilter is the catalog query shape used by the assistant.
// Categories and Or are ignored when empty. Or conditions are alternatives;
// everything else is conjunctive.
type ProductFilter struct {
	Status     string
	VendorID   uuid.UUID
	Categories []string
	Or         []specification.TextMatch
	Limit      int
	SortField  string
	SortDesc   bool
}

type ProductRepository interface {
	Find(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error)
}
