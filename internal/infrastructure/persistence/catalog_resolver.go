package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/shared"
)

// GormCatalogResolver implements orders.CatalogResolver against the
// catalog_items mapping table
type GormCatalogResolver struct {
	db *gorm.DB
}

// NewGormCatalogResolver creates a new GormCatalogResolver
func NewGormCatalogResolver(db *gorm.DB) *GormCatalogResolver {
	return &GormCatalogResolver{db: db}
}

var _ orders.CatalogResolver = (*GormCatalogResolver)(nil)

// ResolveExternalProduct looks up the internal catalog record for an external
// product ID. Returns shared.ErrNotFound when no mapping exists.
func (r *GormCatalogResolver) ResolveExternalProduct(ctx context.Context, externalProductID int64) (*orders.CatalogRef, error) {
	var item orders.CatalogItem
	if err := r.db.WithContext(ctx).
		Where("external_product_id = ?", externalProductID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return item.Ref(), nil
}
