// Package middleware provides the gin middleware shared by the HTTP
// API: authentication, request logging and metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/setil-app/backend/internal/auth"
	"github.com/setil-app/backend/internal/identity"
)

// RequireAuth validates the bearer token and stashes the signed-in
// user into the request context, where the ledger core's identity
// provider picks it up.
func RequireAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}

		ctx := identity.WithUser(c.Request.Context(), identity.User{
			ID:          claims.UserID,
			DisplayName: claims.DisplayName,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
