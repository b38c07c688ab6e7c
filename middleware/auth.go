package middleware

import (
	"net/http"
	"strings"

	"pitstop/models"
	"pitstop/utils"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// AuthMiddleware validates the bearer token and attaches the authenticated
// actor (ID and role) to the request context. Revoked tokens are tracked in
// the auth cache by hash.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		id, role, err := utils.ExtractActorFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// A token hash present in the auth cache marks a revoked session.
		revoked, err := utils.GetAuthCacheClient().Exists(c.Request.Context(), "revoked:"+utils.HashToken(tokenString)).Result()
		if err == nil && revoked > 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token revoked"})
			return
		}

		// Erasure revokes all of a user's sessions at once, without knowing
		// the individual token hashes.
		userRevoked, err := utils.UserSessionsRevoked(c.Request.Context(), id)
		if err == nil && userRevoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer active"})
			return
		}

		c.Set(actorContextKey, models.Actor{ID: id, Role: models.ActorRole(role)})
		c.Next()
	}
}

// RequireRole rejects requests whose actor is not one of the given roles.
func RequireRole(roles ...models.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// GetActor returns the authenticated actor set by AuthMiddleware.
func GetActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
