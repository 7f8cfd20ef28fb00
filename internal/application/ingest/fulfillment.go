package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/storefront"
)

// FulfillmentTrigger decides whether a freshly-upserted order should be
// automatically fulfilled on the upstream platform, and performs the call.
// The trigger is a best-effort side effect: failure is recorded and logged
// but never fails the webhook, because the order itself is already durably
// stored. The next status-changing webhook retries naturally.
type FulfillmentTrigger struct {
	client storefront.Client
	logger *zap.Logger
}

// NewFulfillmentTrigger creates a FulfillmentTrigger.
func NewFulfillmentTrigger(client storefront.Client, logger *zap.Logger) *FulfillmentTrigger {
	return &FulfillmentTrigger{client: client, logger: logger}
}

// TriggerResult reports the outcome of one trigger evaluation.
type TriggerResult struct {
	// Triggered is true when a remote fulfillment-creation call was made.
	Triggered bool
	// FulfillmentID is the remote fulfillment ID on success.
	FulfillmentID int64
	// Status is the remote fulfillment status on success.
	Status string
	// Reason explains why nothing was triggered.
	Reason string
}

// ShouldTrigger applies the gating rule: the order must be paid, not yet
// fulfilled, and the delivery must be an order-mutation topic. Fulfillment
// topics are excluded to avoid feedback loops.
func ShouldTrigger(topic storefront.WebhookTopic, financial orders.FinancialStatus, fulfillment orders.FulfillmentStatus) bool {
	if !topic.IsOrderMutation() {
		return false
	}
	if financial != orders.FinancialStatusPaid {
		return false
	}
	return fulfillment == orders.FulfillmentStatusNone || fulfillment == orders.FulfillmentStatusUnfulfilled
}

// Trigger evaluates the order and, when gated in, creates a remote
// fulfillment for its unfulfilled line items with customer notification off
// and no tracking info.
func (t *FulfillmentTrigger) Trigger(ctx context.Context, conn *storefront.ShopConnection, topic storefront.WebhookTopic, order *orders.Order) (*TriggerResult, error) {
	if !ShouldTrigger(topic, order.FinancialStatus, order.FulfillmentStatus) {
		return &TriggerResult{Reason: "order not eligible for automatic fulfillment"}, nil
	}

	pending := order.UnfulfilledItems()
	if len(pending) == 0 {
		t.logger.Info("all line items already fulfilled, nothing to trigger",
			zap.Int64("external_order_id", order.ExternalOrderID))
		return &TriggerResult{Reason: "no unfulfilled line items"}, nil
	}

	req := &storefront.FulfillmentRequest{
		OrderID:        order.ExternalOrderID,
		Lines:          make([]storefront.FulfillmentLineInput, 0, len(pending)),
		NotifyCustomer: false,
	}
	for _, item := range pending {
		req.Lines = append(req.Lines, storefront.FulfillmentLineInput{
			LineItemID: item.ExternalLineID,
			Quantity:   item.Quantity,
		})
	}

	fulfillment, err := t.client.CreateFulfillment(ctx, conn, req)
	if err != nil {
		t.logger.Error("automatic fulfillment failed",
			zap.Int64("external_order_id", order.ExternalOrderID),
			zap.String("remote_code", string(storefront.CodeOf(err))),
			zap.Error(err))
		return &TriggerResult{Triggered: true}, err
	}

	t.logger.Info("automatic fulfillment created",
		zap.Int64("external_order_id", order.ExternalOrderID),
		zap.Int64("fulfillment_id", fulfillment.ID),
		zap.String("status", fulfillment.Status))

	return &TriggerResult{
		Triggered:     true,
		FulfillmentID: fulfillment.ID,
		Status:        fulfillment.Status,
	}, nil
}
