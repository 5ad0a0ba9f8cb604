package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"labstation-backend/config"
	"labstation-backend/internal/mw"
	"labstation-backend/internal/notification"
	"labstation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store         store.Store
	cfg           *config.Config
	pool          *notification.WorkerPool
	otp           OTPSender
	signInLimiter *mw.SignInLimiter
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, cfg *config.Config, pool *notification.WorkerPool, otp OTPSender, signInLimiter *mw.SignInLimiter) *Handler {
	return &Handler{
		store:         s,
		cfg:           cfg,
		pool:          pool,
		otp:           otp,
		signInLimiter: signInLimiter,
	}
}

// respondError maps a domain error onto an HTTP status with a structured
// body; anything without a kind is an opaque internal failure.
func respondError(c *gin.Context, err error) {
	se, ok := store.AsError(err)
	if !ok {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusBadRequest
	switch se.Kind {
	case store.KindNotFound:
		status = http.StatusNotFound
	case store.KindAuthorization:
		status = http.StatusForbidden
	case store.KindConflict:
		// Timeline conflicts are 409; the remaining conflict codes
		// (already booked, already queued) surface as plain 400s.
		if se.Code == store.CodeConflict {
			status = http.StatusConflict
		}
	}

	body := gin.H{"error": se.Message, "code": se.Code}
	if se.Conflict != nil {
		body["conflictingReservation"] = se.Conflict
	}
	c.AbortWithStatusJSON(status, body)
}

// mustActor returns the authenticated actor or aborts with 401. The
// identity middleware guarantees presence on every route it guards.
func mustActor(c *gin.Context) (store.Actor, bool) {
	actor, ok := mw.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return actor, ok
}
