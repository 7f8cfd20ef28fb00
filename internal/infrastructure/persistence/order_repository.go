package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/shared"
)

// GormOrderRepository implements orders.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ orders.Repository = (*GormOrderRepository)(nil)

// orderUpdateColumns are the columns refreshed when a redelivered or updated
// webhook hits an existing row. The natural key and local-only flags
// (converted_to_internal_order) are deliberately excluded.
var orderUpdateColumns = []string{
	"name", "order_number",
	"status", "financial_status", "fulfillment_status",
	"currency", "subtotal_price", "total_tax", "total_shipping",
	"total_discount", "total_price",
	"customer_external_id", "customer_email", "customer_name", "customer_phone",
	"billing_address_json", "shipping_address_json", "shipping_lines_json",
	"tax_lines_json", "discounts_json", "refunds_json",
	"raw_payload", "webhook_received", "needs_vendor_assignment",
	"placed_at", "upstream_updated_at", "synced_at", "updated_at",
}

// Upsert stores the order by its natural key (vendor_id, external_order_id).
// The conflict clause carries a stale-overwrite guard: an update only applies
// when the incoming upstream timestamp is not older than the stored one, so
// out-of-order webhook delivery cannot roll an order back. Line items are
// merged by their own natural key; existing rows keep their IDs and any
// catalog association set out of band.
func (r *GormOrderRepository) Upsert(ctx context.Context, order *orders.Order) (uuid.UUID, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	var canonicalID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "external_order_id"}},
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("storefront_orders.upstream_updated_at <= excluded.upstream_updated_at"),
			}},
			DoUpdates: clause.AssignmentColumns(orderUpdateColumns),
		}).Create(order).Error; err != nil {
			return err
		}

		// The insert may have hit an existing row; re-read the canonical row
		// to learn its ID and whether the guard rejected this delivery.
		var stored orders.Order
		if err := tx.Select("id", "upstream_updated_at").
			Where("vendor_id = ? AND external_order_id = ?", order.VendorID, order.ExternalOrderID).
			First(&stored).Error; err != nil {
			return err
		}
		canonicalID = stored.ID

		if stored.UpstreamUpdatedAt.After(order.UpstreamUpdatedAt) {
			// Stale delivery: the stored order is newer, leave items alone.
			return nil
		}

		if len(order.Items) == 0 {
			return nil
		}

		items := make([]orders.LineItem, len(order.Items))
		copy(items, order.Items)
		for i := range items {
			if items[i].ID == uuid.Nil {
				items[i].ID = uuid.New()
			}
			items[i].OrderID = canonicalID
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "order_id"}, {Name: "external_product_id"}, {Name: "external_variant_id"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"external_line_id":   gorm.Expr("excluded.external_line_id"),
				"sku":                gorm.Expr("excluded.sku"),
				"name":               gorm.Expr("excluded.name"),
				"unit_price":         gorm.Expr("excluded.unit_price"),
				"quantity":           gorm.Expr("excluded.quantity"),
				"line_total":         gorm.Expr("excluded.line_total"),
				"fulfillment_status": gorm.Expr("excluded.fulfillment_status"),
				// An association made locally survives redelivery; an incoming
				// resolution wins over an empty one.
				"catalog_id": gorm.Expr("COALESCE(excluded.catalog_id, storefront_order_items.catalog_id)"),
			}),
		}).Create(&items).Error
	})
	if err != nil {
		return uuid.Nil, err
	}

	return canonicalID, nil
}

// FindByExternalID finds an order by its natural key
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, vendorID, externalOrderID int64) (*orders.Order, error) {
	var order orders.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("vendor_id = ? AND external_order_id = ?", vendorID, externalOrderID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByID finds an order by its internal ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	var order orders.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// MarkConverted flags an order as converted to an internal order
func (r *GormOrderRepository) MarkConverted(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&orders.Order{}).
		Where("id = ?", id).
		Update("converted_to_internal_order", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
