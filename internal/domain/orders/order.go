package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrMissingExternalOrderID = errors.New("orders: external order ID is required")
	ErrNegativeQuantity       = errors.New("orders: line item quantity cannot be negative")
)

// ---------------------------------------------------------------------------
// Status Types
// ---------------------------------------------------------------------------

// FinancialStatus is the payment state reported by the upstream platform.
type FinancialStatus string

const (
	FinancialStatusPending       FinancialStatus = "pending"
	FinancialStatusAuthorized    FinancialStatus = "authorized"
	FinancialStatusPaid          FinancialStatus = "paid"
	FinancialStatusPartiallyPaid FinancialStatus = "partially_paid"
	FinancialStatusRefunded      FinancialStatus = "refunded"
	FinancialStatusVoided        FinancialStatus = "voided"
)

// String returns the string representation of FinancialStatus
func (s FinancialStatus) String() string {
	return string(s)
}

// FulfillmentStatus is the shipment state reported by the upstream platform.
// The upstream sends null for orders that have never been fulfilled; that is
// represented here as the empty string.
type FulfillmentStatus string

const (
	FulfillmentStatusNone        FulfillmentStatus = ""
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusPartial     FulfillmentStatus = "partial"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentStatusRestocked   FulfillmentStatus = "restocked"
)

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// IsFulfilled returns true if the line or order no longer needs fulfillment
func (s FulfillmentStatus) IsFulfilled() bool {
	return s == FulfillmentStatusFulfilled || s == FulfillmentStatusRestocked
}

// OrderStatus is the local status derived from the upstream financial and
// fulfillment statuses.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// DeriveStatus maps the upstream financial/fulfillment status pair onto the
// local order status. Fulfillment wins over payment: a fulfilled order is
// FULFILLED regardless of its financial state.
func DeriveStatus(financial FinancialStatus, fulfillment FulfillmentStatus) OrderStatus {
	if fulfillment.IsFulfilled() {
		return OrderStatusFulfilled
	}
	switch financial {
	case FinancialStatusPaid, FinancialStatusPartiallyPaid:
		return OrderStatusPaid
	case FinancialStatusRefunded:
		return OrderStatusRefunded
	case FinancialStatusVoided:
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Order mirrors one externally-placed order locally. Identity is the natural
// key (VendorID, ExternalOrderID); ExternalOrderID is immutable once assigned
// by the upstream platform. Orders are never hard-deleted by this core.
type Order struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	VendorID int64     `gorm:"not null;uniqueIndex:idx_orders_vendor_external,priority:1"`
	// ExternalOrderID is the order ID assigned by the upstream platform.
	ExternalOrderID int64 `gorm:"not null;uniqueIndex:idx_orders_vendor_external,priority:2"`
	// Name is the display name, e.g. "#1001".
	Name        string `gorm:"type:varchar(50)"`
	OrderNumber int64

	Status            OrderStatus       `gorm:"type:varchar(20);not null;default:'PENDING'"`
	FinancialStatus   FinancialStatus   `gorm:"type:varchar(20)"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(20)"`

	Currency      string          `gorm:"type:varchar(10)"`
	SubtotalPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalShipping decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	CustomerExternalID int64
	CustomerEmail      string `gorm:"type:varchar(255)"`
	CustomerName       string `gorm:"type:varchar(200)"`
	CustomerPhone      string `gorm:"type:varchar(50)"`

	// Serialized JSON blobs carried through without interpretation.
	BillingAddressJSON  string `gorm:"type:text"`
	ShippingAddressJSON string `gorm:"type:text"`
	ShippingLinesJSON   string `gorm:"type:text"`
	TaxLinesJSON        string `gorm:"type:text"`
	DiscountsJSON       string `gorm:"type:text"`
	RefundsJSON         string `gorm:"type:text"`

	// RawPayload is the last webhook body received for this order, kept as
	// an audit trail.
	RawPayload string `gorm:"type:text"`

	WebhookReceived          bool `gorm:"not null;default:false"`
	NeedsVendorAssignment    bool `gorm:"not null;default:false;index"`
	ConvertedToInternalOrder bool `gorm:"not null;default:false"`

	// PlacedAt is the upstream created_at; UpstreamUpdatedAt is the upstream
	// updated_at used as the stale-overwrite guard.
	PlacedAt          time.Time `gorm:"not null"`
	UpstreamUpdatedAt time.Time `gorm:"not null"`
	SyncedAt          time.Time `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Items []LineItem `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "storefront_orders"
}

// LineItem is one externally-reported order line, owned by an Order. Items
// are merged by the natural key (OrderID, ExternalProductID,
// ExternalVariantID) on every order upsert.
type LineItem struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_natural,priority:1"`

	// ExternalLineID is the upstream line item ID, needed for the remote
	// fulfillment-creation call.
	ExternalLineID    int64 `gorm:"not null"`
	ExternalProductID int64 `gorm:"not null;uniqueIndex:idx_order_items_natural,priority:2"`
	ExternalVariantID int64 `gorm:"not null;uniqueIndex:idx_order_items_natural,priority:3"`

	// CatalogID is the resolved internal catalog identifier; nil means the
	// item still needs catalog mapping.
	CatalogID *uuid.UUID `gorm:"type:uuid;index"`

	SKU  string `gorm:"type:varchar(100)"`
	Name string `gorm:"type:varchar(255)"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Quantity  int             `gorm:"not null;default:0"`
	// LineTotal is always UnitPrice * Quantity, computed at write time rather
	// than trusted from upstream.
	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (LineItem) TableName() string {
	return "storefront_order_items"
}

// ComputeTotal recalculates LineTotal from the unit price and quantity.
func (li *LineItem) ComputeTotal() {
	li.LineTotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate checks line item invariants.
func (li *LineItem) Validate() error {
	if li.Quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// NeedsCatalogMapping returns true when the item could not be resolved to an
// internal catalog record.
func (li *LineItem) NeedsCatalogMapping() bool {
	return li.CatalogID == nil
}

// Validate checks order invariants.
func (o *Order) Validate() error {
	if o.ExternalOrderID == 0 {
		return ErrMissingExternalOrderID
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UnfulfilledItems returns the line items that still need fulfillment.
func (o *Order) UnfulfilledItems() []LineItem {
	out := make([]LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		if !item.FulfillmentStatus.IsFulfilled() {
			out = append(out, item)
		}
	}
	return out
}
