package middlewares

import (
	"net/http"
	"strings"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the bearer token into an identity on the request
// context. Tokens are JWTs that must also still exist in redis, so logout
// revokes them before expiry. Requests without a token pass through
// anonymous; RequireAuth/RequireAdmin gate the protected groups.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("Authorization")
		if token == "" {
			c.Next()
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		validated, err := utils.JwtValidate(token)
		if err != nil || !validated.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		claims, ok := validated.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		// Revocation check. When redis is down we fall back to the JWT alone
		// rather than locking everyone out.
		email, exists, err := config.GetRedisValue("Token:" + token)
		if err == nil && config.GetRedisDB() != nil && !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		if email != "" {
			ctx = utils.SetUserEmailInContext(ctx, email)
		}
		ctx = utils.SetIsAdminInContext(ctx, claims.Role == string(models.UserRoleAdmin))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context())
		if !ok || !isAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
