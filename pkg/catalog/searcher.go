package catalog

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"

	"github.com/google/uuid"
)

const DefaultLimit = 5

// textFields are the product columns a message token is matched against.
var textFields = []string{"name", "description"}

type Searcher struct {
	products contract.ProductRepository
	logger   logger.ILogger
}

func NewSearcher(products contract.ProductRepository, log logger.ILogger) *Searcher {
	return &Searcher{products: products, logger: log}
}

// BuildFilter turns a customer message into a catalog query. Messages without
// product words fall back to the vendor's most recent active products.
func BuildFilter(message string, vendorID uuid.UUID, limit int) contract.ProductFilter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter := contract.ProductFilter{
		Status:   entity.ProductStatusActive,
		VendorID: vendorID,
		Limit:    limit,
	}

	tokens := Tokens(message)
	if len(tokens) == 0 {
		filter.SortField = "created_at"
		filter.SortDesc = true
		return filter
	}

	for _, c := range DetectCategories(tokens) {
		filter.Categories = append(filter.Categories, string(c))
	}
	for _, t := range tokens {
		for _, field := range textFields {
			filter.Or = append(filter.Or, specification.TextMatch{Field: field, Term: t})
		}
	}
	return filter
}

// SearchProductsForMessage returns the repository result unmodified.
func (s *Searcher) SearchProductsForMessage(ctx context.Context, message string, vendorID uuid.UUID, limit int) ([]*entity.Product, error) {
	filter := BuildFilter(message, vendorID, limit)

	products, err := s.products.Find(ctx, filter)
	if err != nil {
		s.logger.Error("CATALOG", "Product search failed", map[string]interface{}{
			"vendor_id": vendorID.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	s.logger.Debug("CATALOG", "Product search", map[string]interface{}{
		"vendor_id":  vendorID.String(),
		"categories": filter.Categories,
		"terms":      len(filter.Or) / len(textFields),
		"found":      len(products),
	})
	return products, nil
}
