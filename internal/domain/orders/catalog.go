package orders

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem maps an external product ID on the upstream platform to an
// internal catalog record. Rows are maintained by the catalog sync flow;
// ingestion only reads them.
type CatalogItem struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	ExternalProductID int64     `gorm:"not null;uniqueIndex"`
	SKU               string    `gorm:"type:varchar(100)"`
	Name              string    `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogItem) TableName() string {
	return "catalog_items"
}

// Ref returns the resolver view of the catalog item.
func (c *CatalogItem) Ref() *CatalogRef {
	return &CatalogRef{
		CatalogID: c.ID,
		SKU:       c.SKU,
		Name:      c.Name,
	}
}
