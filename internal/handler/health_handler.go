// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
// No need for controller classes, just functions grouped by file.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	processor remote.Processor
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(processor remote.Processor) *HealthHandler {
	return &HealthHandler{processor: processor}
}

// Healthz responds with service status. A missing API key doesn't make the
// service unhealthy, it is reported so the operator can spot it.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"service":    "removebg-pro",
		"adapter":    h.processor.Name(),
		"configured": h.processor.Ready() == nil,
	})
}
