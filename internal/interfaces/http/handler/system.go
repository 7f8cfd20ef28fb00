package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storelink/backend/internal/infrastructure/persistence"
)

// SystemHandler serves liveness and readiness probes.
type SystemHandler struct {
	BaseHandler
	db *persistence.Database
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database) *SystemHandler {
	return &SystemHandler{db: db}
}

// RegisterLegacyRoutes registers the probe endpoints at the engine root.
func (h *SystemHandler) RegisterLegacyRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)
}

// Health handles GET /healthz
func (h *SystemHandler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
