package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencbt/opencbt-backend/internal/response"
	"github.com/opencbt/opencbt-backend/internal/service"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active device
// session in Redis. A mismatch means the participant logged in elsewhere or a
// proctor reset the session; either way this token is dead.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for participant tokens.
		if claims.TokenType != service.TokenTypeParticipant {
			c.Next()
			return
		}

		if err := authService.ValidateParticipantSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
