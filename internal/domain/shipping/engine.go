package shipping

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrEngineUnavailable   = errors.New("shipping: rate engine unavailable")
	ErrNoServiceableRoutes = errors.New("shipping: no serviceable routes for destination")
	ErrMissingDestination  = errors.New("shipping: destination postal code is required")
	ErrNonPositiveWeight   = errors.New("shipping: total weight must be positive")
	ErrUnknownPaymentMode  = errors.New("shipping: unknown payment mode")
)

// PaymentMode distinguishes prepaid orders from cash-on-delivery, which most
// carriers price differently.
type PaymentMode string

const (
	PaymentModePrepaid        PaymentMode = "prepaid"
	PaymentModeCashOnDelivery PaymentMode = "cod"
)

// IsValid returns true if the payment mode is recognized
func (m PaymentMode) IsValid() bool {
	return m == PaymentModePrepaid || m == PaymentModeCashOnDelivery
}

// RateItem is one shippable unit in a rate request.
type RateItem struct {
	SKU         string
	Quantity    int
	WeightGrams int64
}

// RateRequest is the input to a shipping-cost computation.
type RateRequest struct {
	// DestinationPostalCode is where the order ships to.
	DestinationPostalCode string
	// TotalWeightGrams is the combined shippable weight.
	TotalWeightGrams int64
	// OrderAmount is the order's monetary value, used for COD surcharges and
	// insurance brackets.
	OrderAmount decimal.Decimal
	// PaymentMode is prepaid or cash-on-delivery.
	PaymentMode PaymentMode
	// Items lists the shippable units.
	Items []RateItem
}

// Validate checks the rate request.
func (r *RateRequest) Validate() error {
	if r.DestinationPostalCode == "" {
		return ErrMissingDestination
	}
	if r.TotalWeightGrams <= 0 {
		return ErrNonPositiveWeight
	}
	if !r.PaymentMode.IsValid() {
		return ErrUnknownPaymentMode
	}
	return nil
}

// Quote is one priced shipping option returned by the engine.
type Quote struct {
	// ServiceName is the human-visible service, e.g. "Surface" or "Express".
	ServiceName string
	// ServiceCode is the engine's stable identifier for the service.
	ServiceCode string
	// Amount is the price in major currency units.
	Amount decimal.Decimal
	// Currency is the ISO currency code.
	Currency string
}

// RateEngine is the port for the internal shipping-rate engine. This core
// only delegates and reshapes; no pricing logic lives on this side.
type RateEngine interface {
	Quote(ctx context.Context, req *RateRequest) ([]Quote, error)
}
