package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
)

// GormShopConnectionRepository implements storefront.ConnectionProvider using GORM
type GormShopConnectionRepository struct {
	db *gorm.DB
}

// NewGormShopConnectionRepository creates a new GormShopConnectionRepository
func NewGormShopConnectionRepository(db *gorm.DB) *GormShopConnectionRepository {
	return &GormShopConnectionRepository{db: db}
}

var _ storefront.ConnectionProvider = (*GormShopConnectionRepository)(nil)

// FindByShopDomain returns the active connection for a shop domain
func (r *GormShopConnectionRepository) FindByShopDomain(ctx context.Context, shopDomain string) (*storefront.ShopConnection, error) {
	var conn storefront.ShopConnection
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND active = ?", shopDomain, true).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByVendor returns the active connection for a vendor
func (r *GormShopConnectionRepository) FindByVendor(ctx context.Context, vendorID int64) (*storefront.ShopConnection, error) {
	var conn storefront.ShopConnection
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND active = ?", vendorID, true).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// ListActive returns all active connections
func (r *GormShopConnectionRepository) ListActive(ctx context.Context) ([]storefront.ShopConnection, error) {
	var conns []storefront.ShopConnection
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("shop_domain").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection by shop domain
func (r *GormShopConnectionRepository) Save(ctx context.Context, conn *storefront.ShopConnection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}
