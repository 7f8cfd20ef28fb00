package storefront

// Webhook header names used by the upstream platform.
const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

// WebhookTopic identifies the event class of a delivery.
type WebhookTopic string

const (
	TopicOrdersCreate    WebhookTopic = "orders/create"
	TopicOrdersUpdated   WebhookTopic = "orders/updated"
	TopicOrdersPaid      WebhookTopic = "orders/paid"
	TopicOrdersCancelled WebhookTopic = "orders/cancelled"
	TopicOrdersFulfilled WebhookTopic = "orders/fulfilled"
)

// String returns the string representation of WebhookTopic
func (t WebhookTopic) String() string {
	return string(t)
}

// IsOrderMutation returns true for topics that represent an order being
// created or changed, as opposed to topics that already report a fulfillment
// outcome. Automatic fulfillment only evaluates mutation topics, to avoid
// feedback loops.
func (t WebhookTopic) IsOrderMutation() bool {
	switch t {
	case TopicOrdersCreate, TopicOrdersUpdated, TopicOrdersPaid:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Order Payload
// ---------------------------------------------------------------------------

// OrderPayload is the JSON body of an order webhook. Monetary fields arrive
// as strings; absent or malformed values normalize to zero downstream.
type OrderPayload struct {
	ID                   int64                 `json:"id"`
	Name                 string                `json:"name"`
	OrderNumber          int64                 `json:"order_number"`
	FinancialStatus      string                `json:"financial_status"`
	FulfillmentStatus    *string               `json:"fulfillment_status"`
	Currency             string                `json:"currency"`
	TotalPrice           string                `json:"total_price"`
	SubtotalPrice        string                `json:"subtotal_price"`
	TotalTax             string                `json:"total_tax"`
	TotalDiscounts       string                `json:"total_discounts"`
	CreatedAt            string                `json:"created_at"`
	UpdatedAt            string                `json:"updated_at"`
	Customer             *CustomerPayload      `json:"customer"`
	BillingAddress       *AddressPayload       `json:"billing_address"`
	ShippingAddress      *AddressPayload       `json:"shipping_address"`
	LineItems            []LineItemPayload     `json:"line_items"`
	ShippingLines        []ShippingLinePayload `json:"shipping_lines"`
	TaxLines             []TaxLinePayload      `json:"tax_lines"`
	DiscountApplications []map[string]any      `json:"discount_applications"`
	Refunds              []map[string]any      `json:"refunds"`
	Fulfillments         []map[string]any      `json:"fulfillments"`
}

// LineItemPayload is one order line as reported by the upstream platform.
type LineItemPayload struct {
	ID                int64   `json:"id"`
	ProductID         int64   `json:"product_id"`
	VariantID         int64   `json:"variant_id"`
	SKU               string  `json:"sku"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	Quantity          int     `json:"quantity"`
	Grams             int64   `json:"grams"`
	FulfillmentStatus *string `json:"fulfillment_status"`
}

// CustomerPayload is the buyer identity attached to an order.
type CustomerPayload struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// AddressPayload is a billing or shipping address.
type AddressPayload struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

// ShippingLinePayload is one shipping charge line; carried through opaquely.
type ShippingLinePayload struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Code  string `json:"code"`
}

// TaxLinePayload is one tax line; carried through opaquely.
type TaxLinePayload struct {
	Title string  `json:"title"`
	Price string  `json:"price"`
	Rate  float64 `json:"rate"`
}
