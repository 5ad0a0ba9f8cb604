package mw

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"labstation-backend/internal/model"
	"labstation-backend/internal/store"
)

const actorContextKey = "mw.actor"

// IdentityClaims is the token payload minted by the identity provider.
// The subject carries the user id; the backend trusts the rest as-is.
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity validates the HS256 bearer token on each request and attaches
// the resulting actor to the gin context. Requests without a valid token
// are rejected with 401.
func Identity(secret string) gin.HandlerFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, keyFunc)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims := token.Claims.(*IdentityClaims)

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		role := model.Role(claims.Role)
		if role != model.RoleAdmin {
			role = model.RoleUser
		}

		c.Set(actorContextKey, store.Actor{
			UserID: userID,
			Email:  claims.Email,
			Role:   role,
		})
		c.Next()
	}
}

// ActorFrom returns the actor the Identity middleware attached to the
// request, if any.
func ActorFrom(c *gin.Context) (store.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return store.Actor{}, false
	}
	actor, ok := v.(store.Actor)
	return actor, ok
}
