package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"labstation-backend/internal/model"
	"labstation-backend/internal/store"
)

type createReservationRequest struct {
	StationID int64      `json:"stationId" binding:"required"`
	StartTime *time.Time `json:"startTime" binding:"required"`
	EndTime   *time.Time `json:"endTime" binding:"required"`
	Notes     string     `json:"notes"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing required fields: stationId, startTime, endTime"})
		return
	}

	reservation, err := h.store.CreateReservation(c.Request.Context(), actor,
		req.StationID, *req.StartTime, *req.EndTime, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reservation": reservation})
}

// ListReservations handles GET /api/reservations. Non-admin callers only
// ever see their own reservations; statuses are reconciled before they
// leave the store.
func (h *Handler) ListReservations(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	filter := store.ReservationFilter{
		Status:   model.ReservationStatus(c.Query("status")),
		All:      c.Query("all") == "true",
		Upcoming: c.Query("upcoming") == "true",
	}
	if raw := c.Query("stationId"); raw != "" {
		stationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid stationId"})
			return
		}
		filter.StationID = stationID
	}

	reservations, err := h.store.ListReservations(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// ReleaseReservation handles PATCH /api/reservations/:id/release: early
// release with waitlist fan-out.
func (h *Handler) ReleaseReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	reservation, notifications, err := h.store.ReleaseReservation(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.pool != nil {
		for _, n := range notifications {
			h.pool.Dispatch(n.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reservation":   reservation,
		"message":       "Reservation released successfully",
		"notifiedUsers": len(notifications),
	})
}

// CancelReservation handles DELETE /api/reservations/:id. No
// waitlist fan-out: a cancelled slot never occupied the station.
func (h *Handler) CancelReservation(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	reservation, err := h.store.CancelReservation(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservation": reservation,
		"message":     "Reservation cancelled successfully",
	})
}
