package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/shipping"
)

// maxEngineResponseSize limits the response body size
const maxEngineResponseSize = 1 * 1024 * 1024 // 1MB

// EngineConfig holds settings for the internal rate engine service.
type EngineConfig struct {
	// BaseURL is the engine's root URL.
	BaseURL string
	// Timeout bounds a single rate computation request.
	Timeout time.Duration
}

// Validate checks the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("shipping: engine base URL is required")
	}
	return nil
}

// HTTPEngine implements shipping.RateEngine against the internal rate
// engine's HTTP API.
type HTTPEngine struct {
	config     *EngineConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPEngine creates a new HTTP rate engine adapter
func NewHTTPEngine(config *EngineConfig, logger *zap.Logger) (*HTTPEngine, error) {
	if config.Timeout <= 0 {
		config.Timeout = 8 * time.Second
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HTTPEngine{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}, nil
}

var _ shipping.RateEngine = (*HTTPEngine)(nil)

// rateRequestWire is the engine's rate computation input.
type rateRequestWire struct {
	DestinationPostalCode string         `json:"destination_postal_code"`
	TotalWeightGrams      int64          `json:"total_weight_grams"`
	OrderAmount           string         `json:"order_amount"`
	PaymentMode           string         `json:"payment_mode"`
	Items                 []rateItemWire `json:"items,omitempty"`
}

type rateItemWire struct {
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	WeightGrams int64  `json:"weight_grams"`
}

type quoteWire struct {
	ServiceName string `json:"service_name"`
	ServiceCode string `json:"service_code"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type quotesEnvelope struct {
	Quotes []quoteWire `json:"quotes"`
}

// Quote delegates the rate computation to the engine service.
func (e *HTTPEngine) Quote(ctx context.Context, req *shipping.RateRequest) ([]shipping.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wire := rateRequestWire{
		DestinationPostalCode: req.DestinationPostalCode,
		TotalWeightGrams:      req.TotalWeightGrams,
		OrderAmount:           req.OrderAmount.String(),
		PaymentMode:           string(req.PaymentMode),
	}
	for _, item := range req.Items {
		wire.Items = append(wire.Items, rateItemWire{
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			WeightGrams: item.WeightGrams,
		})
	}

	bodyBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("shipping: failed to marshal rate request: %w", err)
	}

	url := e.config.BaseURL + "/v1/rates"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("shipping: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxEngineResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrEngineUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, shipping.ErrNoServiceableRoutes
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", shipping.ErrEngineUnavailable, resp.StatusCode)
	}

	var envelope quotesEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("shipping: failed to decode engine response: %w", err)
	}

	if len(envelope.Quotes) == 0 {
		return nil, shipping.ErrNoServiceableRoutes
	}

	quotes := make([]shipping.Quote, 0, len(envelope.Quotes))
	for _, q := range envelope.Quotes {
		amount, err := decimal.NewFromString(q.Amount)
		if err != nil {
			e.logger.Warn("engine quote has unparseable amount, dropped",
				zap.String("service_code", q.ServiceCode),
				zap.String("amount", q.Amount))
			continue
		}
		quotes = append(quotes, shipping.Quote{
			ServiceName: q.ServiceName,
			ServiceCode: q.ServiceCode,
			Amount:      amount,
			Currency:    q.Currency,
		})
	}

	if len(quotes) == 0 {
		return nil, shipping.ErrNoServiceableRoutes
	}

	return quotes, nil
}
