package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
)

// Normalizer maps external order payloads into the internal order schema.
// Resolution steps are best-effort: an unresolved vendor or catalog record
// degrades the result instead of failing it, because dropping a webhook loses
// data while ambiguous ownership can be repaired later.
type Normalizer struct {
	connections storefront.ConnectionProvider
	catalog     orders.CatalogResolver
	logger      *zap.Logger
	now         func() time.Time
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(connections storefront.ConnectionProvider, catalog orders.CatalogResolver, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		connections: connections,
		catalog:     catalog,
		logger:      logger,
		now:         time.Now,
	}
}

// Normalize produces one Order plus its ordered line items from a webhook
// payload. raw is the unparsed request body, kept verbatim as the audit
// trail.
func (n *Normalizer) Normalize(ctx context.Context, shopDomain string, payload *storefront.OrderPayload, raw []byte) (*orders.Order, error) {
	order := &orders.Order{
		VendorID:        0,
		ExternalOrderID: payload.ID,
		Name:            payload.Name,
		OrderNumber:     payload.OrderNumber,
		Currency:        payload.Currency,

		FinancialStatus:   orders.FinancialStatus(payload.FinancialStatus),
		FulfillmentStatus: fulfillmentStatusOf(payload.FulfillmentStatus),

		SubtotalPrice: parseAmount(payload.SubtotalPrice),
		TotalTax:      parseAmount(payload.TotalTax),
		TotalDiscount: parseAmount(payload.TotalDiscounts),
		TotalPrice:    parseAmount(payload.TotalPrice),

		RawPayload:      string(raw),
		WebhookReceived: true,

		PlacedAt:          n.parseTime(payload.CreatedAt),
		UpstreamUpdatedAt: n.parseTime(payload.UpdatedAt),
		SyncedAt:          n.now(),
	}
	order.Status = orders.DeriveStatus(order.FinancialStatus, order.FulfillmentStatus)

	// Vendor resolution. Unresolved shops keep vendor 0 and are flagged for
	// manual assignment rather than dropped.
	conn, err := n.connections.FindByShopDomain(ctx, shopDomain)
	switch {
	case err == nil:
		order.VendorID = conn.VendorID
	case err == shared.ErrNotFound:
		order.NeedsVendorAssignment = true
		n.logger.Warn("no connection for shop domain, order flagged for vendor assignment",
			zap.String("shop_domain", shopDomain),
			zap.Int64("external_order_id", payload.ID))
	default:
		return nil, err
	}

	n.applyCustomer(order, payload)
	n.applyOpaqueBlobs(order, payload)

	order.Items = make([]orders.LineItem, 0, len(payload.LineItems))
	var shippingTotal decimal.Decimal
	for _, line := range payload.ShippingLines {
		shippingTotal = shippingTotal.Add(parseAmount(line.Price))
	}
	order.TotalShipping = shippingTotal

	for _, line := range payload.LineItems {
		order.Items = append(order.Items, n.normalizeLine(ctx, &line))
	}

	return order, nil
}

// normalizeLine maps one payload line, resolving the internal catalog record
// with left-join semantics: a miss leaves CatalogID nil and falls back to the
// upstream-supplied name/sku/price.
func (n *Normalizer) normalizeLine(ctx context.Context, line *storefront.LineItemPayload) orders.LineItem {
	item := orders.LineItem{
		ExternalLineID:    line.ID,
		ExternalProductID: line.ProductID,
		ExternalVariantID: line.VariantID,
		SKU:               line.SKU,
		Name:              line.Title,
		UnitPrice:         parseAmount(line.Price),
		Quantity:          line.Quantity,
		FulfillmentStatus: fulfillmentStatusOf(line.FulfillmentStatus),
	}

	if line.ProductID != 0 {
		ref, err := n.catalog.ResolveExternalProduct(ctx, line.ProductID)
		switch {
		case err == nil:
			id := ref.CatalogID
			item.CatalogID = &id
			if item.SKU == "" {
				item.SKU = ref.SKU
			}
		case err == shared.ErrNotFound:
			// Needs catalog mapping; upstream fields stand in.
		default:
			n.logger.Warn("catalog lookup failed, item left unmapped",
				zap.Int64("external_product_id", line.ProductID),
				zap.Error(err))
		}
	}

	item.ComputeTotal()
	return item
}

// applyCustomer fills customer identity, preferring the shipping address name
// over a first+last concatenation.
func (n *Normalizer) applyCustomer(order *orders.Order, payload *storefront.OrderPayload) {
	if payload.Customer != nil {
		order.CustomerExternalID = payload.Customer.ID
		order.CustomerEmail = payload.Customer.Email
		order.CustomerPhone = payload.Customer.Phone
	}

	if payload.ShippingAddress != nil && payload.ShippingAddress.Name != "" {
		order.CustomerName = payload.ShippingAddress.Name
	} else if payload.Customer != nil {
		order.CustomerName = strings.TrimSpace(payload.Customer.FirstName + " " + payload.Customer.LastName)
	}

	if order.CustomerPhone == "" && payload.ShippingAddress != nil {
		order.CustomerPhone = payload.ShippingAddress.Phone
	}
}

// applyOpaqueBlobs serializes the passthrough arrays. These are stored for
// downstream consumers and never interpreted by this core.
func (n *Normalizer) applyOpaqueBlobs(order *orders.Order, payload *storefront.OrderPayload) {
	order.BillingAddressJSON = marshalOrEmpty(payload.BillingAddress)
	order.ShippingAddressJSON = marshalOrEmpty(payload.ShippingAddress)
	order.ShippingLinesJSON = marshalOrEmpty(payload.ShippingLines)
	order.TaxLinesJSON = marshalOrEmpty(payload.TaxLines)
	order.DiscountsJSON = marshalOrEmpty(payload.DiscountApplications)
	order.RefundsJSON = marshalOrEmpty(payload.Refunds)
}

// parseTime parses an upstream RFC3339 timestamp, falling back to now rather
// than failing the whole webhook.
func (n *Normalizer) parseTime(value string) time.Time {
	if value == "" {
		return n.now()
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		n.logger.Debug("unparseable upstream timestamp, using now", zap.String("value", value))
		return n.now()
	}
	return t
}

// parseAmount parses an upstream monetary string. Absent or non-numeric
// values default to zero.
func parseAmount(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// fulfillmentStatusOf maps the upstream nullable status string.
func fulfillmentStatusOf(value *string) orders.FulfillmentStatus {
	if value == nil {
		return orders.FulfillmentStatusNone
	}
	return orders.FulfillmentStatus(*value)
}

// marshalOrEmpty serializes v to JSON, returning "" for nil values and on
// marshal failure.
func marshalOrEmpty(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	if s == "null" {
		return ""
	}
	return s
}
