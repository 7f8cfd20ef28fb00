package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/domain/orders"
	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
)

const (
	// defaultFulfillTimeout bounds the remote fulfillment call made after
	// the webhook has been acknowledged.
	defaultFulfillTimeout = 15 * time.Second
	// deliveryDedupTTL is how long a webhook delivery ID is remembered.
	deliveryDedupTTL = 24 * time.Hour
)

// Delivery is one inbound webhook delivery, already read off the wire.
type Delivery struct {
	Topic      storefront.WebhookTopic
	ShopDomain string
	// WebhookID is the platform's delivery identifier, when present.
	WebhookID string
	// Payload is the raw request body, byte-exact.
	Payload []byte
	// SignatureValid records the verifier's verdict. Rejection happens at the
	// transport edge when configured; the service itself only logs it.
	SignatureValid bool
}

// Result reports what ingestion did with a delivery.
type Result struct {
	OrderID uuid.UUID
	// Duplicate is true when the delivery ID was seen before and processing
	// was short-circuited.
	Duplicate bool
	// FulfillmentScheduled is true when a background fulfillment attempt was
	// started.
	FulfillmentScheduled bool
}

// Service is the order-webhook ingestion pipeline: parse, normalize, upsert,
// then trigger automatic fulfillment off the request path. The upsert is the
// only step that can fail ingestion; everything after it is best-effort.
type Service struct {
	repo        orders.Repository
	normalizer  *Normalizer
	trigger     *FulfillmentTrigger
	connections storefront.ConnectionProvider
	dedup       shared.IdempotencyStore
	logger      *zap.Logger

	fulfillTimeout time.Duration

	// wg tracks background fulfillment goroutines so shutdown and tests can
	// drain them.
	wg sync.WaitGroup
}

// ServiceConfig carries the dependencies for the ingestion service.
type ServiceConfig struct {
	Repo        orders.Repository
	Normalizer  *Normalizer
	Trigger     *FulfillmentTrigger
	Connections storefront.ConnectionProvider
	// Dedup is optional; nil disables delivery-ID short-circuiting.
	Dedup  shared.IdempotencyStore
	Logger *zap.Logger
	// FulfillTimeout bounds the background fulfillment call; zero means the
	// default.
	FulfillTimeout time.Duration
}

// NewService creates the ingestion service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.FulfillTimeout
	if timeout <= 0 {
		timeout = defaultFulfillTimeout
	}
	return &Service{
		repo:           cfg.Repo,
		normalizer:     cfg.Normalizer,
		trigger:        cfg.Trigger,
		connections:    cfg.Connections,
		dedup:          cfg.Dedup,
		logger:         cfg.Logger,
		fulfillTimeout: timeout,
	}
}

// HandleOrderWebhook processes one delivery through the pipeline. On return
// the order is durably stored (or the delivery was a recognized duplicate);
// the fulfillment side effect, if gated in, continues on a background
// goroutine so the HTTP response is never blocked by a remote call.
func (s *Service) HandleOrderWebhook(ctx context.Context, delivery *Delivery) (*Result, error) {
	if !delivery.SignatureValid {
		s.logger.Warn("webhook signature invalid, processing anyway per current contract",
			zap.String("topic", delivery.Topic.String()),
			zap.String("shop_domain", delivery.ShopDomain))
	}

	if s.dedup != nil && delivery.WebhookID != "" {
		fresh, err := s.dedup.MarkProcessed(ctx, dedupKey(delivery), deliveryDedupTTL)
		if err != nil {
			// The cache is an optimization; a cache failure must never drop
			// a webhook.
			s.logger.Warn("delivery dedup store unavailable", zap.Error(err))
		} else if !fresh {
			s.logger.Info("duplicate webhook delivery short-circuited",
				zap.String("webhook_id", delivery.WebhookID))
			return &Result{Duplicate: true}, nil
		}
	}

	var payload storefront.OrderPayload
	if err := json.Unmarshal(delivery.Payload, &payload); err != nil {
		return nil, err
	}

	order, err := s.normalizer.Normalize(ctx, delivery.ShopDomain, &payload, delivery.Payload)
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	orderID, err := s.repo.Upsert(ctx, order)
	if err != nil {
		return nil, err
	}
	order.ID = orderID

	result := &Result{OrderID: orderID}

	if ShouldTrigger(delivery.Topic, order.FinancialStatus, order.FulfillmentStatus) && !order.NeedsVendorAssignment {
		conn, err := s.connections.FindByVendor(ctx, order.VendorID)
		if err != nil {
			s.logger.Warn("no connection for vendor, skipping automatic fulfillment",
				zap.Int64("vendor_id", order.VendorID),
				zap.Error(err))
		} else {
			result.FulfillmentScheduled = true
			s.wg.Add(1)
			go s.runFulfillment(conn, delivery.Topic, order)
		}
	}

	return result, nil
}

// runFulfillment performs the remote fulfillment call detached from the
// request lifecycle, with its own bounded timeout.
func (s *Service) runFulfillment(conn *storefront.ShopConnection, topic storefront.WebhookTopic, order *orders.Order) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.fulfillTimeout)
	defer cancel()

	if _, err := s.trigger.Trigger(ctx, conn, topic, order); err != nil {
		// Already logged by the trigger; nothing to propagate, the webhook
		// was acknowledged long ago.
		return
	}
}

// Drain waits for in-flight background fulfillment work. Used during
// shutdown and by tests.
func (s *Service) Drain() {
	s.wg.Wait()
}

// dedupKey builds the idempotency-store key for a delivery.
func dedupKey(d *Delivery) string {
	return d.ShopDomain + ":" + d.WebhookID
}
