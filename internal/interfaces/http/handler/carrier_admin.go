package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storelink/backend/internal/application/carrier"
	"github.com/storelink/backend/internal/domain/shared"
	"github.com/storelink/backend/internal/domain/storefront"
)

// CarrierAdminHandler exposes the manual reconcile trigger for operators.
type CarrierAdminHandler struct {
	BaseHandler
	reconciler  *carrier.Reconciler
	connections storefront.ConnectionProvider
	logger      *zap.Logger
}

// NewCarrierAdminHandler creates a new CarrierAdminHandler
func NewCarrierAdminHandler(reconciler *carrier.Reconciler, connections storefront.ConnectionProvider, logger *zap.Logger) *CarrierAdminHandler {
	return &CarrierAdminHandler{
		reconciler:  reconciler,
		connections: connections,
		logger:      logger,
	}
}

// RegisterRoutes registers admin routes
func (h *CarrierAdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/carrier-services/reconcile", h.Reconcile)
}

// reconcileRequest optionally narrows the sweep to one shop.
type reconcileRequest struct {
	ShopDomain string `json:"shop_domain"`
}

// reconcileShopResult reports one shop's reconcile outcome.
type reconcileShopResult struct {
	ShopDomain       string   `json:"shop_domain"`
	Initial          string   `json:"initial_state"`
	Final            string   `json:"final_state"`
	RegistrationID   int64    `json:"registration_id,omitempty"`
	RegistrationName string   `json:"registration_name,omitempty"`
	OrphanID         int64    `json:"orphan_id,omitempty"`
	Actions          []string `json:"actions,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Reconcile handles POST /admin/carrier-services/reconcile
func (h *CarrierAdminHandler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	var conns []storefront.ShopConnection
	if req.ShopDomain != "" {
		conn, err := h.connections.FindByShopDomain(ctx, req.ShopDomain)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				h.NotFound(c, fmt.Sprintf("no active connection for shop %q", req.ShopDomain))
				return
			}
			h.HandleError(c, err)
			return
		}
		conns = []storefront.ShopConnection{*conn}
	} else {
		var err error
		conns, err = h.connections.ListActive(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
	}

	results := make([]reconcileShopResult, 0, len(conns))
	failed := 0
	for i := range conns {
		conn := conns[i]
		report, err := h.reconciler.Reconcile(ctx, &conn)
		result := reconcileShopResult{ShopDomain: conn.ShopDomain}
		if report != nil {
			result.Initial = string(report.Initial)
			result.Final = string(report.Final)
			result.RegistrationID = report.RegistrationID
			result.RegistrationName = report.RegistrationName
			result.OrphanID = report.OrphanID
			result.Actions = report.Actions
		}
		if err != nil {
			failed++
			result.Error = err.Error()
			h.logger.Error("carrier service reconcile failed",
				zap.String("shop_domain", conn.ShopDomain),
				zap.Error(err))
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": failed == 0,
		"message": fmt.Sprintf("reconciled %d shop(s), %d failed", len(conns), failed),
		"results": results,
	})
}
