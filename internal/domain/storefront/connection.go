package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConnectionMissingShopDomain  = errors.New("storefront: shop domain is required")
	ErrConnectionMissingAccessToken = errors.New("storefront: access token is required")
)

// ShopConnection is an established link between a vendor and a shop on the
// upstream platform. Token exchange happens elsewhere; this core only
// consumes the resulting pair.
type ShopConnection struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	// VendorID is the internal vendor the shop belongs to.
	VendorID int64 `gorm:"not null;index"`
	// ShopDomain is the myshop domain, e.g. "acme.myshopify.com".
	ShopDomain string `gorm:"type:varchar(255);not null;uniqueIndex"`
	// AccessToken authorizes admin-API calls for this shop.
	AccessToken string `gorm:"type:varchar(255);not null"`
	// Active indicates whether the connection is usable.
	Active bool `gorm:"not null;default:true"`
	// ConnectedAt is when the connection was established.
	ConnectedAt time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShopConnection) TableName() string {
	return "shop_connections"
}

// Validate checks that the connection is usable for remote calls.
func (c *ShopConnection) Validate() error {
	if c.ShopDomain == "" {
		return ErrConnectionMissingShopDomain
	}
	if c.AccessToken == "" {
		return ErrConnectionMissingAccessToken
	}
	return nil
}

// ConnectionProvider supplies shop connections. Implementations are expected
// to return shared.ErrNotFound when no active connection matches.
type ConnectionProvider interface {
	// FindByShopDomain returns the active connection for a shop domain.
	FindByShopDomain(ctx context.Context, shopDomain string) (*ShopConnection, error)

	// FindByVendor returns the active connection for a vendor.
	FindByVendor(ctx context.Context, vendorID int64) (*ShopConnection, error)

	// ListActive returns all active connections.
	ListActive(ctx context.Context) ([]ShopConnection, error)
}
