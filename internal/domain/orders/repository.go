package orders

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists mirrored orders. Upsert is the only write path: it must
// be idempotent for identical input and safe under concurrent execution for
// the same natural key.
type Repository interface {
	// Upsert stores the order and its line items by natural key
	// (VendorID, ExternalOrderID), updating mutable fields in place when the
	// order already exists. Line items are merged by their own natural key
	// rather than deleted and reinserted, so internal catalog associations
	// made out of band survive redelivery. Returns the internal order ID.
	Upsert(ctx context.Context, order *Order) (uuid.UUID, error)

	// FindByExternalID looks up an order by its natural key. Returns
	// shared.ErrNotFound when absent.
	FindByExternalID(ctx context.Context, vendorID, externalOrderID int64) (*Order, error)

	// FindByID looks up an order by internal ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// MarkConverted flags an order as converted to an internal order.
	MarkConverted(ctx context.Context, id uuid.UUID) error
}

// CatalogRef is the internal catalog record an external product resolves to.
type CatalogRef struct {
	CatalogID uuid.UUID
	SKU       string
	Name      string
}

// CatalogResolver resolves external product identifiers to internal catalog
// records. Resolution is best-effort: absence is reported via
// shared.ErrNotFound and must not fail normalization.
type CatalogResolver interface {
	ResolveExternalProduct(ctx context.Context, externalProductID int64) (*CatalogRef, error)
}
