package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/storage"
	"github.com/Bibleyou/RemoveBG-Pro/internal/workflow"
)

const (
	defaultRecentCalls = 20
	maxRecentCalls     = 200
)

// AdminHandler reports credit usage from the call ledger.
type AdminHandler struct {
	callRepo storage.CallRepository
	sessions *workflow.Sessions
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler. callRepo may be nil when the
// ledger is disabled; the endpoints then answer 503.
func NewAdminHandler(callRepo storage.CallRepository, sessions *workflow.Sessions, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		callRepo: callRepo,
		sessions: sessions,
		logger:   logger,
	}
}

// Stats returns call counts per outcome.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	if h.callRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "call ledger disabled"})
		return
	}
	ctx := c.Request.Context()

	total, err := h.callRepo.Count(ctx)
	if err != nil {
		h.logger.Error("counting calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	byOutcome, err := h.callRepo.CountByOutcome(ctx)
	if err != nil {
		h.logger.Error("counting calls by outcome", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_calls":     total,
		"by_outcome":      byOutcome,
		"active_sessions": h.sessions.Len(),
	})
}

// RecentCalls lists the latest ledger rows.
// Route: GET /api/v1/admin/calls?limit=20
func (h *AdminHandler) RecentCalls(c *gin.Context) {
	if h.callRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "call ledger disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentCalls)))
	if err != nil || limit < 1 || limit > maxRecentCalls {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
		return
	}

	calls, err := h.callRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls})
}
