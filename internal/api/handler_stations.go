package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetStations handles GET /api/stations: every station with its computed
// occupancy, current reservation, and next-available time.
func (h *Handler) GetStations(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}

	states, err := h.store.ListStationStates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stations": states})
}

// GetStation handles GET /api/stations/:id: the computed state of one
// station.
func (h *Handler) GetStation(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return
	}

	state, err := h.store.GetStationState(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
