package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal-service/internal/identity"
	"portal-service/internal/models"
	"portal-service/internal/observability"
)

const (
	UserContextKey   = "user"
	UserIDContextKey = "userID"
)

// AuthMiddleware resolves the session token against the session store and
// stores the identity on the gin context.
func AuthMiddleware(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := observability.SessionTokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, identity.ErrUnauthenticated) {
				log.Printf("session resolve failed: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores user as the request identity.
func SetUser(c *gin.Context, user models.User) {
	c.Set(UserContextKey, user)
	c.Set(UserIDContextKey, user.ID)
}

// CurrentUser returns the identity set by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(UserContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
