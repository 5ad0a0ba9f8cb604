package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type joinQueueRequest struct {
	PreferredStationID *int64 `json:"preferredStationId"`
}

// JoinQueue handles POST /api/queue.
func (h *Handler) JoinQueue(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	// An empty body means no station preference.
	var req joinQueueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}
	}

	entry, err := h.store.JoinQueue(c.Request.Context(), actor, req.PreferredStationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"entry":    entry,
		"position": entry.Position,
		"message":  fmt.Sprintf("You are now #%d in the queue", entry.Position),
	})
}

// LeaveQueue handles DELETE /api/queue.
func (h *Handler) LeaveQueue(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.store.LeaveQueue(c.Request.Context(), actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left the queue successfully"})
}

// GetQueue handles GET /api/queue.
func (h *Handler) GetQueue(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	state, err := h.store.ListQueue(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
