package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/application/rates"
	"github.com/storelink/backend/internal/domain/shipping"
)

// RatesHandler serves the carrier-service rate callback. The upstream
// platform calls this endpoint during checkout; a non-200 answer means the
// buyer sees no shipping options, so degraded answers prefer an empty rate
// list over an error status.
type RatesHandler struct {
	BaseHandler
	service *rates.Service
	logger  *zap.Logger
}

// NewRatesHandler creates a new RatesHandler
func NewRatesHandler(service *rates.Service, logger *zap.Logger) *RatesHandler {
	return &RatesHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers rate callback routes
func (h *RatesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rates", h.CalculateRates)
}

// rateCallbackRequest is the platform's rate callback payload.
type rateCallbackRequest struct {
	Rate struct {
		Origin      rateAddress        `json:"origin"`
		Destination rateAddress        `json:"destination"`
		Items       []rateCallbackItem `json:"items"`
		Currency    string             `json:"currency"`
	} `json:"rate" binding:"required"`
}

type rateAddress struct {
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country"`
	Province    string `json:"province"`
	City        string `json:"city"`
}

// rateCallbackItem prices are in minor currency units, weights in grams.
type rateCallbackItem struct {
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	Quantity         int    `json:"quantity"`
	Grams            int64  `json:"grams"`
	Price            int64  `json:"price"`
	RequiresShipping bool   `json:"requires_shipping"`
}

// CalculateRates handles POST /rates
func (h *RatesHandler) CalculateRates(c *gin.Context) {
	var req rateCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid rate request: "+err.Error())
		return
	}

	rateReq := &shipping.RateRequest{
		DestinationPostalCode: req.Rate.Destination.PostalCode,
		PaymentMode:           shipping.PaymentModePrepaid,
	}

	var amountMinor int64
	for _, item := range req.Rate.Items {
		if !item.RequiresShipping {
			continue
		}
		rateReq.TotalWeightGrams += item.Grams * int64(item.Quantity)
		amountMinor += item.Price * int64(item.Quantity)
		rateReq.Items = append(rateReq.Items, shipping.RateItem{
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			WeightGrams: item.Grams,
		})
	}
	rateReq.OrderAmount = decimal.New(amountMinor, -2)

	quotes, err := h.service.Quote(c.Request.Context(), rateReq)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrNoServiceableRoutes):
			// An empty list renders as "no shipping options" at checkout.
			c.JSON(http.StatusOK, gin.H{"rates": []rates.Rate{}})
		case errors.Is(err, shipping.ErrMissingDestination),
			errors.Is(err, shipping.ErrNonPositiveWeight),
			errors.Is(err, shipping.ErrUnknownPaymentMode):
			h.BadRequest(c, err.Error())
		default:
			h.logger.Error("rate computation failed",
				zap.String("destination", rateReq.DestinationPostalCode),
				zap.Error(err))
			h.BadGateway(c, "rate engine unavailable")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": quotes})
}
