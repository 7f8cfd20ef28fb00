package rates

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/shipping"
)

// deliveryDateLayout is the timestamp format the upstream platform expects
// for delivery-window bounds.
const deliveryDateLayout = "2006-01-02 15:04:05 -0700"

// Rate is one shipping option in the schema the upstream platform expects
// from a rate callback: price in minor currency units, delivery window as
// absolute dates.
type Rate struct {
	ServiceName     string `json:"service_name"`
	ServiceCode     string `json:"service_code"`
	TotalPrice      string `json:"total_price"`
	Currency        string `json:"currency"`
	MinDeliveryDate string `json:"min_delivery_date"`
	MaxDeliveryDate string `json:"max_delivery_date"`
}

// Service proxies shipping-cost computation to the internal rate engine and
// reshapes the result. No pricing logic lives here, only unit conversion
// and schema reshaping.
type Service struct {
	engine shipping.RateEngine
	logger *zap.Logger

	// minDeliveryDays/maxDeliveryDays are added to "today" to produce the
	// delivery-window bounds.
	minDeliveryDays int
	maxDeliveryDays int

	now func() time.Time
}

// NewService creates the rate proxy. minDays and maxDays bound the delivery
// window estimate.
func NewService(engine shipping.RateEngine, minDays, maxDays int, logger *zap.Logger) *Service {
	if minDays <= 0 {
		minDays = 2
	}
	if maxDays < minDays {
		maxDays = minDays + 5
	}
	return &Service{
		engine:          engine,
		logger:          logger,
		minDeliveryDays: minDays,
		maxDeliveryDays: maxDays,
		now:             time.Now,
	}
}

// Quote delegates to the rate engine and reshapes each quote into the
// upstream rate schema.
func (s *Service) Quote(ctx context.Context, req *shipping.RateRequest) ([]Rate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	quotes, err := s.engine.Quote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rate engine: %w", err)
	}

	today := s.now()
	minDate := today.AddDate(0, 0, s.minDeliveryDays).Format(deliveryDateLayout)
	maxDate := today.AddDate(0, 0, s.maxDeliveryDays).Format(deliveryDateLayout)

	out := make([]Rate, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, Rate{
			ServiceName: q.ServiceName,
			ServiceCode: q.ServiceCode,
			// Major units to minor units: shift two decimal places and
			// round to a whole number of cents.
			TotalPrice:      q.Amount.Shift(2).Round(0).String(),
			Currency:        q.Currency,
			MinDeliveryDate: minDate,
			MaxDeliveryDate: maxDate,
		})
	}

	s.logger.Debug("rate quotes reshaped",
		zap.String("destination", req.DestinationPostalCode),
		zap.Int("quotes", len(out)))

	return out, nil
}
