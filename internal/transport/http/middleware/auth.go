package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jobportal/auth-service/internal/token"
)

const errUnauthorized = "Unauthorized"

// Auth verifies the AccessToken header signature and sets "userID" and
// "userEmail" in the gin context. Only access-kind tokens pass: guest,
// refresh and reset tokens are rejected even though they carry a valid
// signature.
func Auth(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAccessToken)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		claims, err := codec.DecodeVerified(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		if claims.Kind != token.KindAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}
