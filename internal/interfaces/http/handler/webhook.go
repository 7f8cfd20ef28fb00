package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/application/ingest"
	"github.com/storelink/backend/internal/domain/storefront"
	"github.com/storelink/backend/internal/infrastructure/config"
)

// WebhookHandler receives order webhooks from the upstream platform. The
// platform treats anything but a fast 2xx as a delivery failure and retries
// with backoff, so the handler acknowledges as early as it safely can and
// keeps slow work off the request path.
type WebhookHandler struct {
	BaseHandler
	ingest *ingest.Service
	cfg    config.WebhookConfig
	logger *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(svc *ingest.Service, cfg config.WebhookConfig, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingest: svc,
		cfg:    cfg,
		logger: logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/orders", h.HandleOrderWebhook)
}

// RegisterLegacyRoutes registers the unversioned webhook path that existing
// shop configurations still point at.
func (h *WebhookHandler) RegisterLegacyRoutes(engine *gin.Engine) {
	engine.POST("/webhooks/orders", h.HandleOrderWebhook)
}

// HandleOrderWebhook handles POST /webhooks/orders
func (h *WebhookHandler) HandleOrderWebhook(c *gin.Context) {
	// The signature covers the raw bytes; read them before any binding.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "failed to read request body")
		return
	}

	topic := storefront.WebhookTopic(c.GetHeader(storefront.HeaderTopic))
	shopDomain := c.GetHeader(storefront.HeaderShopDomain)
	signatureValid := storefront.VerifySignature(h.cfg.Secret, body, c.GetHeader(storefront.HeaderHmac))

	if !signatureValid && h.cfg.RejectInvalidSignature {
		h.logger.Warn("webhook rejected, invalid signature",
			zap.String("topic", topic.String()),
			zap.String("shop_domain", shopDomain))
		h.Unauthorized(c, "invalid webhook signature")
		return
	}

	_, err = h.ingest.HandleOrderWebhook(c.Request.Context(), &ingest.Delivery{
		Topic:          topic,
		ShopDomain:     shopDomain,
		WebhookID:      c.GetHeader(storefront.HeaderWebhookID),
		Payload:        body,
		SignatureValid: signatureValid,
	})
	if err != nil {
		// The platform redelivers on its own schedule; a failed delivery is
		// logged and acknowledged rather than surfaced, because an error
		// status would only trigger an identical redelivery of a payload we
		// already failed to process.
		h.logger.Error("order webhook processing failed",
			zap.String("topic", topic.String()),
			zap.String("shop_domain", shopDomain),
			zap.Error(err))
	}

	c.String(http.StatusOK, "ok")
}
