package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// OTPSender hands a sign-in link request off to the external identity
// provider. The backend never authenticates anyone itself.
type OTPSender interface {
	SendOTP(ctx context.Context, email string) error
}

// LogOTPSender is a stand-in sender that only logs, for deployments where
// the identity provider delivers sign-in links out of band.
type LogOTPSender struct{}

func (LogOTPSender) SendOTP(_ context.Context, email string) error {
	log.Printf("OTP requested for %s (no sender configured)", email)
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type sendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

// SendOTP handles POST /api/auth/otp: validates the email against the
// configured domain allowlist, applies the IP+email sign-in limit, and
// forwards to the identity provider's sender.
func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(h.cfg.Auth.AllowedDomains) > 0 {
		parts := strings.SplitN(email, "@", 2)
		allowed := false
		if len(parts) == 2 {
			for _, d := range h.cfg.Auth.AllowedDomains {
				if parts[1] == strings.ToLower(d) {
					allowed = true
					break
				}
			}
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("only %s emails are allowed", domainList(h.cfg.Auth.AllowedDomains)),
			})
			return
		}
	}

	if !emailPattern.MatchString(email) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid email format"})
		return
	}

	if h.signInLimiter != nil {
		if allowed, retryAfter := h.signInLimiter.Allow(c.ClientIP(), email); !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      fmt.Sprintf("too many requests, please wait %d seconds", retryAfter),
				"retryAfter": retryAfter,
			})
			return
		}
	}

	if err := h.otp.SendOTP(c.Request.Context(), email); err != nil {
		log.Printf("OTP send failed for %s: %v", email, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to send sign-in link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sign-in link sent successfully"})
}

func domainList(domains []string) string {
	withAt := make([]string, len(domains))
	for i, d := range domains {
		withAt[i] = "@" + d
	}
	return strings.Join(withAt, ", ")
}
