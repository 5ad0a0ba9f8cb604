package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"labstation-backend/config"
	"labstation-backend/internal/mw"
	"labstation-backend/internal/notification"
	"labstation-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, pool *notification.WorkerPool, otp OTPSender, signInLimiter *mw.SignInLimiter) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, cfg, pool, otp, signInLimiter)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	identity := mw.Identity(cfg.Auth.TokenSecret)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Sign-in front door; everything else requires an identity token.
		api.POST("/auth/otp", handler.SendOTP)

		authed := api.Group("", identity)
		{
			authed.GET("/stations", handler.GetStations)
			authed.GET("/stations/:id", handler.GetStation)

			authed.POST("/reservations", handler.CreateReservation)
			authed.GET("/reservations", handler.ListReservations)
			authed.PATCH("/reservations/:id/release", handler.ReleaseReservation)
			authed.DELETE("/reservations/:id", handler.CancelReservation)

			authed.POST("/queue", handler.JoinQueue)
			authed.DELETE("/queue", handler.LeaveQueue)
			authed.GET("/queue", handler.GetQueue)

			authed.GET("/notifications", handler.ListNotifications)
			authed.PATCH("/notifications/:id/read", handler.MarkNotificationRead)

			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
			authed.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		}
	}

	return r
}
