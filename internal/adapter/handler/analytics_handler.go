package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/storefront/internal/core/domain"
)

type logItemConsumedRequest struct {
	EventID   string     `json:"event_id"`
	UserID    int64      `json:"user_id"`
	ItemID    int64      `json:"item_id"`
	StoreID   int64      `json:"store_id"`
	Timestamp *time.Time `json:"timestamp"`
}

func (h *HTTPHandler) GetEvents(c *gin.Context) {
	events, err := h.svc.Analytics.CachedEvents(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *HTTPHandler) GetAnalytics(c *gin.Context) {
	snapshot, err := h.svc.Analytics.CachedAnalytics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// LogItemConsumed is the queue worker's delivery target.
func (h *HTTPHandler) LogItemConsumed(c *gin.Context) {
	var req logItemConsumedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	event := domain.ConsumptionEvent{
		EventID: req.EventID,
		UserID:  req.UserID,
		ItemID:  req.ItemID,
		StoreID: req.StoreID,
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	}

	if err := h.svc.Events.Record(c.Request.Context(), event); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *HTTPHandler) UpdateCache(c *gin.Context) {
	ctx := c.Request.Context()

	events, err := h.svc.Analytics.RefreshCache(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if _, err := h.svc.Analytics.RefreshAnalytics(ctx); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cache updated", "count": len(events)})
}
