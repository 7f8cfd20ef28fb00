package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/storefront"
)

// Constants for the Shopify admin API
const (
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response
	// accessTokenHeader authenticates admin API calls
	accessTokenHeader = "X-Shopify-Access-Token"
)

// ShopifyConfig holds adapter settings for the Shopify admin API.
type ShopifyConfig struct {
	// Scheme is "https" in production; tests point it at "http" so an
	// httptest server can stand in for a shop domain.
	Scheme string
	// APIVersion is the admin API version segment, e.g. "2024-01".
	APIVersion string
	// Timeout bounds a single request.
	Timeout time.Duration
	// RetryMaxAttempts caps retries of idempotent reads.
	RetryMaxAttempts int
	// RetryBaseDelay is the initial backoff delay.
	RetryBaseDelay time.Duration
}

// Validate checks the adapter configuration.
func (c *ShopifyConfig) Validate() error {
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("shopify: invalid scheme %q", c.Scheme)
	}
	if c.APIVersion == "" {
		return fmt.Errorf("shopify: api version is required")
	}
	return nil
}

// ShopifyAdapter implements storefront.Client against the Shopify admin REST
// API. Authentication is per-call via the shop connection's access token;
// the adapter itself holds no shop state.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger) (*ShopifyAdapter, error) {
	if config.Scheme == "" {
		config.Scheme = "https"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

var _ storefront.Client = (*ShopifyAdapter)(nil)

// baseURL builds the admin API root for a shop.
func (a *ShopifyAdapter) baseURL(conn *storefront.ShopConnection) string {
	return fmt.Sprintf("%s://%s/admin/api/%s", a.config.Scheme, conn.ShopDomain, a.config.APIVersion)
}

// ---------------------------------------------------------------------------
// Fulfillment Operations
// ---------------------------------------------------------------------------

// CreateFulfillment creates a fulfillment for an order
func (a *ShopifyAdapter) CreateFulfillment(ctx context.Context, conn *storefront.ShopConnection, req *storefront.FulfillmentRequest) (*storefront.Fulfillment, error) {
	payload := fulfillmentEnvelope{
		Fulfillment: fulfillmentWire{
			NotifyCustomer: req.NotifyCustomer,
		},
	}
	for _, line := range req.Lines {
		payload.Fulfillment.LineItems = append(payload.Fulfillment.LineItems, fulfillmentLineWire{
			ID:       line.LineItemID,
			Quantity: line.Quantity,
		})
	}

	url := fmt.Sprintf("%s/orders/%d/fulfillments.json", a.baseURL(conn), req.OrderID)

	var resp fulfillmentEnvelope
	if err := a.doRequest(ctx, conn, http.MethodPost, url, payload, &resp); err != nil {
		return nil, err
	}

	return &storefront.Fulfillment{
		ID:     resp.Fulfillment.ID,
		Status: resp.Fulfillment.Status,
	}, nil
}

// ---------------------------------------------------------------------------
// Carrier Service Operations
// ---------------------------------------------------------------------------

// ListCarrierServices lists the shop's carrier-service registrations.
// The call is an idempotent read and is retried on transient failures.
func (a *ShopifyAdapter) ListCarrierServices(ctx context.Context, conn *storefront.ShopConnection) ([]storefront.CarrierService, error) {
	url := a.baseURL(conn) + "/carrier_services.json"

	var resp carrierServiceListEnvelope
	err := a.withRetry(ctx, func(ctx context.Context) error {
		resp = carrierServiceListEnvelope{}
		return a.doRequest(ctx, conn, http.MethodGet, url, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	out := make([]storefront.CarrierService, 0, len(resp.CarrierServices))
	for _, cs := range resp.CarrierServices {
		out = append(out, fromCarrierServiceWire(cs))
	}
	return out, nil
}

// CreateCarrierService registers a new carrier service
func (a *ShopifyAdapter) CreateCarrierService(ctx context.Context, conn *storefront.ShopConnection, input *storefront.CarrierServiceInput) (*storefront.CarrierService, error) {
	url := a.baseURL(conn) + "/carrier_services.json"
	payload := carrierServiceEnvelope{CarrierService: toCarrierServiceWire(input)}

	var resp carrierServiceEnvelope
	if err := a.doRequest(ctx, conn, http.MethodPost, url, payload, &resp); err != nil {
		return nil, err
	}

	result := fromCarrierServiceWire(resp.CarrierService)
	return &result, nil
}

// UpdateCarrierService updates an existing registration in place
func (a *ShopifyAdapter) UpdateCarrierService(ctx context.Context, conn *storefront.ShopConnection, id int64, input *storefront.CarrierServiceInput) (*storefront.CarrierService, error) {
	url := fmt.Sprintf("%s/carrier_services/%d.json", a.baseURL(conn), id)
	wire := toCarrierServiceWire(input)
	wire.ID = id
	payload := carrierServiceEnvelope{CarrierService: wire}

	var resp carrierServiceEnvelope
	if err := a.doRequest(ctx, conn, http.MethodPut, url, payload, &resp); err != nil {
		return nil, err
	}

	result := fromCarrierServiceWire(resp.CarrierService)
	return &result, nil
}

// DeleteCarrierService removes a registration by ID
func (a *ShopifyAdapter) DeleteCarrierService(ctx context.Context, conn *storefront.ShopConnection, id int64) error {
	url := fmt.Sprintf("%s/carrier_services/%d.json", a.baseURL(conn), id)
	return a.doRequest(ctx, conn, http.MethodDelete, url, nil, nil)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// doRequest performs one admin API call. A received platform response is
// always classified into a *storefront.RemoteError on failure; a call that
// never produced a response classifies as TRANSPORT.
func (a *ShopifyAdapter) doRequest(ctx context.Context, conn *storefront.ShopConnection, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("shopify: failed to marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("shopify: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(accessTokenHeader, conn.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return storefront.NewRemoteError(storefront.ErrorCodeTransport, 0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return storefront.NewRemoteError(storefront.ErrorCodeTransport, resp.StatusCode, "failed to read response: "+err.Error())
	}

	if resp.StatusCode >= 400 {
		return a.classify(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("shopify: failed to decode response: %w", err)
		}
	}

	return nil
}

// classify maps an admin API error response onto a stable error code. The
// platform reports most failures as 422 with field/message lists, so the
// distinction between "already exists" and other validation failures has to
// come from the messages; that string matching lives here and nowhere else.
func (a *ShopifyAdapter) classify(statusCode int, body []byte) *storefront.RemoteError {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)
	message, fieldMap := envelope.flatten()

	var fields []storefront.FieldError
	for field, msgs := range fieldMap {
		for _, msg := range msgs {
			fields = append(fields, storefront.FieldError{Field: field, Message: msg})
		}
	}

	code := storefront.ErrorCodeUnknown
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		code = storefront.ErrorCodeForbidden
	case statusCode == http.StatusNotFound:
		code = storefront.ErrorCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		code = storefront.ErrorCodeRateLimited
	case statusCode == http.StatusUnprocessableEntity:
		if isAlreadyExistsMessage(message) {
			code = storefront.ErrorCodeAlreadyExists
		} else {
			code = storefront.ErrorCodeInvalid
		}
	case statusCode >= 500:
		code = storefront.ErrorCodeTransport
	case statusCode >= 400:
		code = storefront.ErrorCodeInvalid
	}

	a.logger.Debug("admin API error classified",
		zap.Int("status", statusCode),
		zap.String("code", string(code)),
		zap.String("message", message))

	return storefront.NewRemoteError(code, statusCode, message, fields...)
}

// isAlreadyExistsMessage recognizes the platform's duplicate-resource
// phrasings in a validation failure.
func isAlreadyExistsMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "already configured") ||
		strings.Contains(lower, "has already been taken")
}

func toCarrierServiceWire(input *storefront.CarrierServiceInput) carrierServiceWire {
	return carrierServiceWire{
		Name:             input.Name,
		CallbackURL:      input.CallbackURL,
		Active:           input.Active,
		ServiceDiscovery: input.SupportsDiscovery,
	}
}

func fromCarrierServiceWire(wire carrierServiceWire) storefront.CarrierService {
	return storefront.CarrierService{
		ID:                wire.ID,
		Name:              wire.Name,
		CallbackURL:       wire.CallbackURL,
		Active:            wire.Active,
		SupportsDiscovery: wire.ServiceDiscovery,
	}
}
